package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

var (
	ErrNotCSV       = errors.New("only CSV files are supported")
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CommissionStore is the persistence surface the import needs: one upsert
// keyed by (user, order_id). The boolean result reports created vs updated.
type CommissionStore interface {
	UpsertByOrderID(ctx context.Context, commission *models.Commission) (created bool, err error)
}

// Archiver stores the raw uploaded file for later inspection.
type Archiver interface {
	ArchiveImport(ctx context.Context, userID, filename string, reader io.Reader, size int64) (string, error)
}

// RowError records a row-level failure with enough context to report it.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result is the per-import accumulator. It is local to one Import call so
// concurrent imports across tenants never share state.
type Result struct {
	Imported int        `json:"imported"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Summary renders the short user-facing outcome message.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d imported, %d updated, %d skipped, %d errors",
		r.Imported, r.Updated, r.Skipped, len(r.Errors))
}

// ImportService reads a commission CSV export, normalizes each row and
// upserts it. Row-level problems never abort the batch; only unreadable
// input or a rejected file does.
type ImportService struct {
	store    CommissionStore
	archiver Archiver
	maxSize  int64
}

func NewImportService(store CommissionStore, archiver Archiver, maxSize int64) *ImportService {
	return &ImportService{
		store:    store,
		archiver: archiver,
		maxSize:  maxSize,
	}
}

// Import runs one CSV import for a tenant and returns the per-batch counters.
func (s *ImportService) Import(ctx context.Context, userID uuid.UUID, filename string, reader io.Reader) (*Result, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, ErrNotCSV
	}

	raw, err := io.ReadAll(io.LimitReader(reader, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(raw)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	s.archive(ctx, userID, filename, raw)

	decoded, err := coerceUTF8(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode upload: %w", err)
	}

	return s.importRows(ctx, userID, decoded)
}

// archive keeps a copy of the raw file in object storage. Best effort: an
// archive failure must not fail the import.
func (s *ImportService) archive(ctx context.Context, userID uuid.UUID, filename string, raw []byte) {
	if s.archiver == nil {
		return
	}
	object, err := s.archiver.ArchiveImport(ctx, userID.String(), filename, bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		slog.Warn("failed to archive import file", "user_id", userID, "filename", filename, "error", err)
		return
	}
	slog.Info("import file archived", "user_id", userID, "object", object)
}

// coerceUTF8 strips a UTF-8 BOM and re-decodes ISO-8859-1 content. Exports
// arrive in both encodings depending on the tool that produced them.
func coerceUTF8(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(raw)
}

func (s *ImportService) importRows(ctx context.Context, userID uuid.UUID, data []byte) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, header := range headers {
		headers[i] = strings.TrimSpace(header)
	}
	slog.Info("starting commission import", "user_id", userID, "headers", len(headers))

	result := &Result{}
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}

		row := Row{}
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = value
			}
		}

		commission, ok := NormalizeRow(userID, row)
		if !ok {
			result.Skipped++
			continue
		}

		created, err := s.store.UpsertByOrderID(ctx, commission)
		if err != nil {
			slog.Error("failed to upsert commission row", "user_id", userID, "line", line, "order_id", commission.OrderID, "error", err)
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		if created {
			result.Imported++
		} else {
			result.Updated++
		}
	}

	slog.Info("commission import finished", "user_id", userID,
		"imported", result.Imported, "updated", result.Updated,
		"skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}
