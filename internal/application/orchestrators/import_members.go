package orchestrators

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	memberStore "nightslip/internal/adapters/storage/member"
	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
	domain "nightslip/internal/domain/member"
	"nightslip/internal/domain/mirror"
)

// ImportMemberRow is one member as supplied by the admin.
type ImportMemberRow struct {
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
	Email string `json:"email"`
}

// ImportMembersInput carries the rows to merge into the roster.
// PRE: ActorEmail is an administrator
// POST: Returns aggregate counts and per-row errors; writes are skipped when DryRun=true.
// INVARIANT: Members absent from Rows are never touched or deleted.
type ImportMembersInput struct {
	ActorEmail string
	Rows       []ImportMemberRow
	DryRun     bool
}

// ImportMembersResult holds aggregate counts and per-row errors from an import run.
type ImportMembersResult struct {
	Total   int                     `json:"total"`
	Created int                     `json:"created"`
	Updated int                     `json:"updated"`
	Skipped int                     `json:"skipped"`
	Errors  []ImportMembersRowError `json:"errors"`
	DryRun  bool                    `json:"dry_run"`
}

// ImportMembersRowError describes why a single row was skipped. Row is 1-based.
type ImportMembersRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportMembersStore is the member persistence used by the import.
type ImportMembersStore interface {
	List(ctx context.Context, filter memberStore.ListFilter) ([]domain.Member, error)
	SaveMany(ctx context.Context, members []domain.Member) error
}

// ImportMembersDeps holds external dependencies for the import orchestrator.
type ImportMembersDeps struct {
	Policy      authz.Policy
	MemberStore ImportMembersStore
	Mirror      MirrorTrigger
	AuditStore  AuditRecorder
	GenerateID  func() string // defaults to uuid.NewString
}

// ExecuteImportMembers merges rows into the roster keyed by normalized email.
// Rows missing a name or email are skipped and reported; an existing member
// with the same stored email has its fields overwritten and keeps its ID;
// anyone else is inserted.
// PRE: ActorEmail is an administrator
// POST: All accepted rows are written in one transaction, or none are
// INVARIANT: When DryRun=true no writes occur
func ExecuteImportMembers(ctx context.Context, input ImportMembersInput, deps ImportMembersDeps) (ImportMembersResult, error) {
	if err := requireAdmin(deps.Policy, input.ActorEmail, "import members"); err != nil {
		return ImportMembersResult{}, err
	}
	if len(input.Rows) == 0 {
		return ImportMembersResult{}, &ImportMembersValidationError{Message: "no members supplied"}
	}

	existing, err := deps.MemberStore.List(ctx, memberStore.ListFilter{})
	if err != nil {
		return ImportMembersResult{}, storeErr("list members", err)
	}
	genID := deps.GenerateID
	if genID == nil {
		genID = uuid.NewString
	}
	idByEmail := make(map[string]string, len(existing))
	takenIDs := make(map[string]bool, len(existing))
	for _, m := range existing {
		idByEmail[domain.NormalizeEmail(m.Email)] = m.ID
		takenIDs[m.ID] = true
	}

	result := ImportMembersResult{Total: len(input.Rows), DryRun: input.DryRun, Errors: []ImportMembersRowError{}}
	var accepted []domain.Member
	for i, row := range input.Rows {
		rowNum := i + 1
		if strings.TrimSpace(row.Name) == "" || strings.TrimSpace(row.Email) == "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: "name and email are required"})
			continue
		}
		m := domain.New(row.Name, row.RegNo, row.Email)
		if err := m.Validate(); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: err.Error()})
			continue
		}

		if id, ok := idByEmail[m.Email]; ok {
			m.ID = id
			result.Updated++
		} else {
			// The address may still be the ID of a member whose email was edited.
			if takenIDs[m.ID] {
				m.ID = genID()
			}
			idByEmail[m.Email] = m.ID
			takenIDs[m.ID] = true
			result.Created++
		}
		accepted = append(accepted, m)
	}

	if !input.DryRun && len(accepted) > 0 {
		if err := deps.MemberStore.SaveMany(ctx, accepted); err != nil {
			return ImportMembersResult{}, storeErr("import members", err)
		}
	}

	slog.Info("members_import",
		"actor", input.ActorEmail,
		"dry_run", input.DryRun,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)

	if !input.DryRun && len(accepted) > 0 {
		recordAudit(ctx, deps.AuditStore,
			audit.NewEvent(input.ActorEmail, audit.CategoryMember, audit.ActionImport).
				WithDescription(fmt.Sprintf("created=%d updated=%d skipped=%d", result.Created, result.Updated, result.Skipped)))
		triggerMirror(deps.Mirror, mirror.TriggerMembers)
	}
	return result, nil
}

// ParseMembersCSV reads the bulk-import format: one "Name, RegNo, Email" line
// per member with no header. A first line whose third column reads "email"
// is treated as a header and dropped. Short lines yield empty fields so the
// import can report them.
func ParseMembersCSV(r io.Reader) ([]ImportMemberRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var rows []ImportMemberRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ImportMembersValidationError{Message: "invalid CSV: " + err.Error()}
		}
		col := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		if len(rows) == 0 && strings.EqualFold(col(2), "email") {
			continue
		}
		if len(rec) == 1 && col(0) == "" {
			continue
		}
		rows = append(rows, ImportMemberRow{Name: col(0), RegNo: col(1), Email: col(2)})
	}
	return rows, nil
}

// ImportMembersValidationError is returned when the import payload itself is unusable.
type ImportMembersValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ImportMembersValidationError) Error() string {
	return e.Message
}
