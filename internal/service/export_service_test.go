package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classgrid-api/internal/dto"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
	appErrors "github.com/noah-isme/classgrid-api/pkg/errors"
	"github.com/noah-isme/classgrid-api/pkg/storage"
)

type proposalReaderStub struct {
	items map[string]*dto.ScheduleProposalResponse
}

func (s proposalReaderStub) GetProposal(ctx context.Context, id string) (*dto.ScheduleProposalResponse, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrProposalExpired, "proposal not found or expired")
	}
	return p, nil
}

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	report := scheduler.Report{
		Status:        scheduler.StatusComplete,
		TotalSections: 1,
		Assigned:      1,
		Feasible:      1,
		Assignments: []scheduler.ReportAssignment{{
			SectionID: "S1", Course: "MATH101", Kind: scheduler.KindLecture, Day: 1, DayName: "MON",
			StartTime: "08:00", EndTime: "09:00", Label: "MON 08:00-09:00", RoomID: "R1", InstructorID: "I1",
		}},
	}
	proposals := proposalReaderStub{items: map[string]*dto.ScheduleProposalResponse{
		"proposal-1": {ProposalID: "proposal-1", TermID: "term-1", Revision: 2, Report: report},
	}}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(proposals, store, signer, nil, ExportConfig{APIPrefix: "/api/v1/"}, zap.NewNop())
}

func TestExportServiceExportCSVAndOpen(t *testing.T) {
	svc := newExportServiceForTest(t)

	resp, err := svc.Export(context.Background(), dto.ExportScheduleRequest{ProposalID: "proposal-1", Format: "CSV"})
	require.NoError(t, err)
	assert.Equal(t, "csv", resp.Format)
	assert.Equal(t, "/api/v1/schedules/exports/"+resp.Token, resp.URL)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	file, err := svc.Open(context.Background(), resp.Token)
	require.NoError(t, err)
	defer file.Body.Close()
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "r2_"))
	body, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Day,Start,End,Section")
	assert.Contains(t, string(body), "MON,08:00,09:00,S1,MATH101")
}

func TestExportServiceExportPDF(t *testing.T) {
	svc := newExportServiceForTest(t)

	resp, err := svc.Export(context.Background(), dto.ExportScheduleRequest{ProposalID: "proposal-1", Format: "pdf"})
	require.NoError(t, err)
	file, err := svc.Open(context.Background(), resp.Token)
	require.NoError(t, err)
	defer file.Body.Close()
	assert.Equal(t, "application/pdf", file.ContentType)
	head := make([]byte, 4)
	_, err = io.ReadFull(file.Body, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestExportServiceErrors(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.Export(context.Background(), dto.ExportScheduleRequest{ProposalID: "proposal-1", Format: "xlsx"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Export(context.Background(), dto.ExportScheduleRequest{ProposalID: "missing", Format: "csv"})
	assert.Equal(t, appErrors.ErrProposalExpired.Code, appErrors.FromError(err).Code)

	_, err = svc.Open(context.Background(), "not-a-token")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	resp, err := svc.Export(context.Background(), dto.ExportScheduleRequest{ProposalID: "proposal-1", Format: "csv"})
	require.NoError(t, err)
	require.NoError(t, svc.storage.Delete(context.Background(), keyFromToken(t, svc, resp.Token)))
	_, err = svc.Open(context.Background(), resp.Token)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func keyFromToken(t *testing.T, svc *ExportService, token string) string {
	t.Helper()
	_, key, _, err := svc.signer.Parse(token, false)
	require.NoError(t, err)
	return key
}
