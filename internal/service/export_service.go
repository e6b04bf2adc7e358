package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classgrid-api/internal/catalogio"
	"github.com/noah-isme/classgrid-api/internal/dto"
	appErrors "github.com/noah-isme/classgrid-api/pkg/errors"
	"github.com/noah-isme/classgrid-api/pkg/export"
	"github.com/noah-isme/classgrid-api/pkg/storage"
)

type proposalReader interface {
	GetProposal(ctx context.Context, proposalID string) (*dto.ScheduleProposalResponse, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportFile is an opened export ready to stream.
type ExportFile struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
}

// ExportService renders proposal reports and hands out signed download links.
type ExportService struct {
	proposals proposalReader
	storage   storage.Provider
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(proposals proposalReader, provider storage.Provider, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		proposals: proposals,
		storage:   provider,
		signer:    signer,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Export renders the current report of a proposal and stores the file.
func (s *ExportService) Export(ctx context.Context, req dto.ExportScheduleRequest) (*dto.ExportScheduleResponse, error) {
	if req.ProposalID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposal id is required")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	proposal, err := s.proposals.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}

	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	title := fmt.Sprintf("Schedule %s (revision %d)", proposal.TermID, proposal.Revision)
	payload, err := renderer.Render(catalogio.ReportDataset(title, proposal.Report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	key := s.objectKey(proposal.ProposalID, proposal.Revision, format)
	if err := s.storage.Put(ctx, key, payload, format.ContentType()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(proposal.ProposalID, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	s.metrics.RecordExport(string(format), s.storage.Name())
	s.logger.Info("schedule exported",
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("format", string(format)),
		zap.String("key", key),
	)
	return &dto.ExportScheduleResponse{
		Token:     token,
		URL:       fmt.Sprintf("%s/schedules/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		Format:    string(format),
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a signed token to the stored file.
func (s *ExportService) Open(ctx context.Context, token string) (*ExportFile, error) {
	_, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "export link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid export link")
	}
	body, err := s.storage.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	format, err := export.ParseFormat(strings.TrimPrefix(path.Ext(key), "."))
	if err != nil {
		format = export.FormatCSV
	}
	return &ExportFile{Body: body, Filename: path.Base(key), ContentType: format.ContentType()}, nil
}

func (s *ExportService) objectKey(proposalID string, revision int, format export.Format) string {
	stamp := s.now().UTC().Format("20060102_150405")
	return path.Join("proposals", proposalID, fmt.Sprintf("r%d_%s.%s", revision, stamp, format))
}
