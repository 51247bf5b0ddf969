package orders

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/resource"
)

// Register wires the billing resources into the registry
func Register(reg *resource.Registry, db *sql.DB, log *zap.Logger) error {
	entities := []struct {
		desc *resource.Descriptor
		gate resource.Gate
	}{
		{orderDescriptor(), orderGate{}},
		{itemDescriptor(), itemGate{}},
		{statusDescriptor(), statusGate{}},
	}

	for _, e := range entities {
		r, err := resource.New(e.desc, e.gate, db, log)
		if err != nil {
			return err
		}
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}
