package users

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/resource"
)

// Register wires the account-side resources into the registry
func Register(reg *resource.Registry, db *sql.DB, log *zap.Logger) error {
	entities := []struct {
		desc *resource.Descriptor
		gate resource.Gate
	}{
		{userDescriptor(), userGate{}},
		{storeDescriptor(), storeGate()},
		{organisationDescriptor(), organisationGate{}},
		{customerDescriptor(), customerGate()},
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

	userStores, err := resource.NewAssociation(userStoreDescriptor(), userStoreGate{}, db, log)
	if err != nil {
		return err
	}
	return reg.RegisterAssociation(userStores)
}
