package main

import (
	"context"

	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
	"github.com/bala2006-m/smart-school-server-sub001/storage/database"
)

var migrateFunc = database.Migrate // mockable

// migrate brings a store's schema up to date. Resolving through the registry
// already opens-and-migrates, so this doubles as a connectivity check.
func (cli *commandLine) migrate(schoolID int) error {
	ctx := context.Background()

	var h *tenant.Handle
	var err error
	if schoolID == 0 {
		h, err = cli.registry.Cloud(ctx)
	} else {
		h, err = cli.registry.Resolve(ctx, tenant.Context{SchoolID: schoolID, DeviceID: "admin-cli"})
	}
	if err != nil {
		return err
	}
	return migrateFunc(h.DB().DB, h.Driver())
}
