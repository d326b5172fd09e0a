package main

import (
	"context"
	"log"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
	emailsvc "github.com/bala2006-m/smart-school-server-sub001/services/email"
	"github.com/bala2006-m/smart-school-server-sub001/storage/database"
	inmemdb "github.com/bala2006-m/smart-school-server-sub001/storage/database/inmem"
)

type stubResolver struct {
	h *tenant.Handle
}

func (r stubResolver) Resolve(ctx context.Context, tc tenant.Context) (*tenant.Handle, error) {
	return r.h, nil
}

func (r stubResolver) Cloud(ctx context.Context) (*tenant.Handle, error) {
	return r.h, nil
}

func testCLI(t *testing.T) (*commandLine, *inmemdb.DB) {
	t.Helper()
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)

	conf := &core.Config{
		Debug:            true,
		AppName:          "SmartSchool",
		SecretKey:        "secret",
		DefaultFromEmail: mail.Address{Address: "noreply@localhost"},
		Server: core.ServerConfig{
			DeviceTokenExpirationDelta: time.Hour,
		},
		Tenancy: core.TenancyConfig{
			Replicas: map[int]string{1: ":memory:"},
		},
		Report: core.ReportConfig{
			Recipients: []mail.Address{{Address: "head@school.test"}},
		},
	}

	registry := tenant.NewRegistry(conf, database.Open, nil)
	t.Cleanup(func() { _ = registry.Close() })

	db := inmemdb.NewDB()
	resolver := stubResolver{h: &tenant.Handle{}}
	cli := &commandLine{
		conf:      conf,
		registry:  registry,
		schoolSvc: school.NewService(resolver, inmemdb.NewSchoolRepository(db)),
		reportSvc: attendance.NewReportService(resolver, inmemdb.NewAttendanceRepository(db), emailsvc.NewConsoleServiceMock(conf), conf),
	}
	return cli, db
}

func TestCLIRun_help(t *testing.T) {
	cli, _ := testCLI(t)

	for _, args := range [][]string{
		{"admin"},
		{"admin", "frobnicate"},
		{"admin", "addschool"},
		{"admin", "devicetoken", "-school", "1"},
		{"admin", "sendreport"},
	} {
		if err := cli.run(args); err != errHelp {
			t.Errorf("run(%v) = %v; want errHelp", args, err)
		}
	}
}

func TestCLIRun_addSchool(t *testing.T) {
	cli, _ := testCLI(t)

	if err := cli.run([]string{"admin", "addschool", "-id", "1", "-name", "Central", "-address", "1 Main St"}); err != nil {
		t.Fatalf("addschool failed: %v", err)
	}

	sch, err := cli.schoolSvc.GetSchool(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetSchool() failed: %v", err)
	}
	if sch.Name != "Central" {
		t.Errorf("school = %+v; want the registered school", sch)
	}

	err = cli.run([]string{"admin", "addschool", "-id", "1", "-name", "Central"})
	if errors.Cause(err) != school.ErrSchoolExists {
		t.Errorf("duplicate addschool err = %v; want ErrSchoolExists", err)
	}
}

func TestCLIRun_deviceToken(t *testing.T) {
	cli, _ := testCLI(t)

	if err := cli.run([]string{"admin", "devicetoken", "-school", "1", "-device", "dev-a"}); err != nil {
		t.Fatalf("devicetoken failed: %v", err)
	}

	err := cli.run([]string{"admin", "devicetoken", "-school", "9", "-device", "dev-a"})
	if errors.Cause(err) != tenant.ErrUnknownTenant {
		t.Errorf("err = %v; want ErrUnknownTenant", err)
	}
}

func TestCLIRun_migrate(t *testing.T) {
	cli, _ := testCLI(t)

	// resolving a replica opens and migrates it; a second run is a no-op
	if err := cli.run([]string{"admin", "migrate", "-school", "1"}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := cli.run([]string{"admin", "migrate", "-school", "1"}); err != nil {
		t.Fatalf("repeated migrate failed: %v", err)
	}
}

func TestCLIRun_sendReport(t *testing.T) {
	cli, db := testCLI(t)

	repo := inmemdb.NewAttendanceRepository(db)
	if _, err := repo.ApplyBatch(context.Background(), nil, []attendance.RecordDelta{{
		Username:  "u1",
		SchoolID:  1,
		Date:      "2024-01-10",
		FnStatus:  attendance.StatusAbsent,
		AnStatus:  attendance.StatusPresent,
		UpdatedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}}, false); err != nil {
		t.Fatalf("seeding attendance: %v", err)
	}

	if err := cli.run([]string{"admin", "sendreport", "-school", "1", "-date", "January 10"}); err == nil {
		t.Error("malformed date accepted; want an error")
	}

	emailsvc.ClearSentMessages()
	if err := cli.run([]string{"admin", "sendreport", "-school", "1", "-date", "2024-01-10"}); err != nil {
		t.Fatalf("sendreport failed: %v", err)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("sent %d messages; want 1", len(emailsvc.SentMessages))
	}
}
