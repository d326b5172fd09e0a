package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

// ReportService serves the active business views of attendance. Unlike the
// sync path these views exclude tombstoned rows.
type ReportService struct {
	resolver Resolver
	repo     Repository
	mailSvc  core.EmailService
	conf     *core.Config
}

func NewReportService(resolver Resolver, repo Repository, mailSvc core.EmailService, conf *core.Config) *ReportService {
	return &ReportService{
		resolver: resolver,
		repo:     repo,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// Active returns the school's non-tombstoned records for a date.
func (svc *ReportService) Active(ctx context.Context, tc tenant.Context, date string, ordering []core.DBOrdering) ([]Record, error) {
	h, err := svc.resolver.Resolve(ctx, tc)
	if err != nil {
		return nil, err
	}

	records, err := svc.repo.ActiveByDate(ctx, h, tc.SchoolID, date, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying active attendance")
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// SendAbsenceSummary emails the configured recipients the list of students
// absent for any part of the given date. Returns the number of absentees.
func (svc *ReportService) SendAbsenceSummary(ctx context.Context, tc tenant.Context, date string) (int, error) {
	records, err := svc.Active(ctx, tc, date, nil)
	if err != nil {
		return 0, err
	}

	var absentees []Record
	for _, rec := range records {
		if rec.FnStatus == StatusAbsent || rec.AnStatus == StatusAbsent {
			absentees = append(absentees, rec)
		}
	}
	if len(absentees) == 0 || len(svc.conf.Report.Recipients) == 0 {
		return len(absentees), nil
	}

	attachment, err := absenceCSV(absentees)
	if err != nil {
		return 0, errors.Wrap(err, "building absence report")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      svc.conf.Report.Recipients,
		Subject: fmt.Sprintf("Absence report for school %d on %s", tc.SchoolID, date),
		BodyStr: fmt.Sprintf("%d student(s) were marked absent on %s. Details attached.", len(absentees), date),
		Attachments: []core.Attachment{{
			Content:     attachment,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("absences-%d-%s.csv", tc.SchoolID, date),
		}},
	})
	return len(absentees), nil
}

func absenceCSV(records []Record) (*bytes.Buffer, error) {
	buff := new(bytes.Buffer)
	w := csv.NewWriter(buff)
	if err := w.Write([]string{"username", "date", "class_id", "fn_status", "an_status"}); err != nil {
		return nil, err
	}
	for _, rec := range records {
		var classID string
		if rec.ClassID.Valid {
			classID = strconv.Itoa(rec.ClassID.Int)
		}
		row := []string{rec.Username, rec.Date, classID, rec.FnStatus, rec.AnStatus}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buff, w.Error()
}
