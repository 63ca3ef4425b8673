package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dataset is one completed load: the merged table plus everything derived
// from the raw inputs that later requests need.
type Dataset struct {
	ID          uuid.UUID
	LoadedAt    time.Time
	StateColumn string
	// States are the selectable states of the cases table.
	States   []string
	Table    *MergedTable
	Geometry []CountyGeometry
}

// NewDataset stamps a freshly merged table with a load ID and time.
func NewDataset(stateColumn string, states []string, table *MergedTable, geometry []CountyGeometry) *Dataset {
	return &Dataset{
		ID:          uuid.New(),
		LoadedAt:    clock.Now().UTC(),
		StateColumn: stateColumn,
		States:      states,
		Table:       table,
		Geometry:    geometry,
	}
}
