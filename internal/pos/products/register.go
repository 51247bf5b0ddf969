package products

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/resource"
)

// Register wires the catalogue resources into the registry
func Register(reg *resource.Registry, db *sql.DB, log *zap.Logger) error {
	entities := []struct {
		desc *resource.Descriptor
		gate resource.Gate
	}{
		{productDescriptor(), productGate{}},
		{brandDescriptor(), brandGate()},
		{taxDescriptor(), taxGate()},
		{stockDescriptor(), stockGate{}},
		{distributorDescriptor(), distributorGate()},
		{distributorBillDescriptor(), distributorBillGate{}},
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

	productTaxes, err := resource.NewAssociation(productTaxDescriptor(), productTaxGate{}, db, log)
	if err != nil {
		return err
	}
	return reg.RegisterAssociation(productTaxes)
}
