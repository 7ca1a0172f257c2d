package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
	"github.com/joseph-ayodele/order-intake/internal/extract"
	"github.com/joseph-ayodele/order-intake/internal/repository"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ErrExtractionTimeout is returned when extraction outlives the configured timeout.
var ErrExtractionTimeout = errors.New("extraction timed out")

// FieldExtractor is satisfied by *extract.Extractor.
type FieldExtractor interface {
	ExtractDetailed(ctx context.Context, pdf []byte) (extract.ExtractedFields, extract.Acquisition, error)
}

// Service handles order business logic.
type Service struct {
	orders    repository.OrderRepository
	extractor FieldExtractor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService creates a new order service. A zero timeout leaves extraction unbounded.
func NewService(orders repository.OrderRepository, extractor FieldExtractor, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orders: orders, extractor: extractor, timeout: timeout, logger: logger}
}

// UploadRequest is a PDF received from a client.
type UploadRequest struct {
	Filename string
	Content  []byte
	UserID   *int64
}

// ValidateUpload checks the filename the way the upload endpoint requires.
func ValidateUpload(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return common.InvalidInputf("No file provided")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return common.InvalidInputf("File must be a PDF")
	}
	return nil
}

// SHA256 returns the hex digest used to record an upload's provenance.
func SHA256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CreateFromPDF extracts the patient fields from the upload and stores a new order.
func (s *Service) CreateFromPDF(ctx context.Context, req UploadRequest) (*entity.Order, error) {
	if err := ValidateUpload(req.Filename); err != nil {
		return nil, err
	}
	sum := SHA256(req.Content)
	logger := s.logger.With("filename", req.Filename, "sha256", sum, "request_id", common.RequestIDFromContext(ctx))

	ectx, cancel := common.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	fields, acq, err := s.extractor.ExtractDetailed(ectx, req.Content)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			logger.Warn("extraction timed out", "timeout", s.timeout)
			return nil, common.NewAppError("EXTRACTION_TIMEOUT", "PDF extraction timed out", ErrExtractionTimeout)
		}
		logger.Warn("extraction failed", "kind", extract.Kind(err), "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	logger.Info("extraction succeeded",
		"method", acq.Method,
		"pages", acq.Pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	o, err := s.orders.Create(ctx, &repository.CreateOrderRequest{
		FirstName:        fields.FirstName,
		LastName:         fields.LastName,
		DateOfBirth:      fields.DateOfBirth,
		SourceFilename:   filepath.Base(req.Filename),
		SourceSHA256:     sum,
		ExtractionMethod: acq.Method,
		CreatedByUserID:  req.UserID,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("order created", "order_id", o.ID)
	return o, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	return s.orders.Get(ctx, id)
}

// List pages through orders by id. A non-positive limit means DefaultLimit.
func (s *Service) List(ctx context.Context, skip, limit int) ([]*entity.Order, error) {
	if skip < 0 {
		return nil, common.InvalidInputf("skip must be >= 0")
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return s.orders.List(ctx, skip, limit)
}

func (s *Service) Update(ctx context.Context, id int64, upd entity.OrderUpdate) (*entity.Order, error) {
	if err := common.NewValidator().
		Field("first_name", upd.FirstName, common.MinLength(1)).
		Field("last_name", upd.LastName, common.MinLength(1)).
		Error(); err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		v := strings.TrimSpace(*upd.FirstName)
		upd.FirstName = &v
	}
	if upd.LastName != nil {
		v := strings.TrimSpace(*upd.LastName)
		upd.LastName = &v
	}
	o, err := s.orders.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order updated", "order_id", id)
	return o, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", "order_id", id)
	return nil
}

// Seen reports whether an order was already created from these exact bytes.
func (s *Service) Seen(ctx context.Context, content []byte) (bool, error) {
	return s.orders.ExistsBySHA256(ctx, SHA256(content))
}
