package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nexboard/module_layer/internal/app/domain/maintenance"
	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/domain/organization"
	"github.com/nexboard/module_layer/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.RegistryStore = (*Store)(nil)
var _ storage.AssignmentStore = (*Store)(nil)
var _ storage.OrganizationStore = (*Store)(nil)
var _ storage.MaintenanceStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, storage.ErrNotFound)
}

func scanJSON(raw []byte, dst *map[string]interface{}) {
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, dst)
	}
}

// --- RegistryStore ----------------------------------------------------------

func (s *Store) ListBaseModules(ctx context.Context) ([]module.BaseModule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sort_order
		FROM base_modules
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []module.BaseModule
	for rows.Next() {
		var bm module.BaseModule
		if err := rows.Scan(&bm.ID, &bm.Name, &bm.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, bm)
	}
	return out, rows.Err()
}

func (s *Store) ListImplementations(ctx context.Context, baseModuleID string) ([]module.Implementation, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM base_modules WHERE id = $1)
	`, baseModuleID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("base module", baseModuleID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT base_module_id, implementation_key, entry_point, default_config, created_at
		FROM module_implementations
		WHERE base_module_id = $1
		ORDER BY implementation_key
	`, baseModuleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImplementations(rows)
}

func (s *Store) ListAllImplementations(ctx context.Context) ([]module.Implementation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT base_module_id, implementation_key, entry_point, default_config, created_at
		FROM module_implementations
		ORDER BY base_module_id, implementation_key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImplementations(rows)
}

func collectImplementations(rows *sql.Rows) ([]module.Implementation, error) {
	var out []module.Implementation
	for rows.Next() {
		var (
			impl      module.Implementation
			configRaw []byte
		)
		if err := rows.Scan(&impl.BaseModuleID, &impl.Key, &impl.EntryPoint, &configRaw, &impl.CreatedAt); err != nil {
			return nil, err
		}
		scanJSON(configRaw, &impl.DefaultConfig)
		out = append(out, impl)
	}
	return out, rows.Err()
}

func (s *Store) GetImplementation(ctx context.Context, baseModuleID, key string) (module.Implementation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT base_module_id, implementation_key, entry_point, default_config, created_at
		FROM module_implementations
		WHERE base_module_id = $1 AND implementation_key = $2
	`, baseModuleID, key)

	var (
		impl      module.Implementation
		configRaw []byte
	)
	if err := row.Scan(&impl.BaseModuleID, &impl.Key, &impl.EntryPoint, &configRaw, &impl.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return module.Implementation{}, notFound("implementation", baseModuleID+"/"+key)
		}
		return module.Implementation{}, err
	}
	scanJSON(configRaw, &impl.DefaultConfig)
	return impl, nil
}

// UpsertBaseModule inserts or replaces a catalog entry. Used by seeding.
func (s *Store) UpsertBaseModule(ctx context.Context, bm module.BaseModule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO base_modules (id, name, sort_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = $2, sort_order = $3
	`, bm.ID, bm.Name, bm.SortOrder)
	return err
}

// UpsertImplementation inserts or replaces an implementation row. Used by seeding.
func (s *Store) UpsertImplementation(ctx context.Context, impl module.Implementation) error {
	configJSON, err := json.Marshal(impl.DefaultConfig)
	if err != nil {
		return err
	}
	if impl.CreatedAt.IsZero() {
		impl.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO module_implementations (base_module_id, implementation_key, entry_point, default_config, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (base_module_id, implementation_key)
		DO UPDATE SET entry_point = $3, default_config = $4
	`, impl.BaseModuleID, impl.Key, impl.EntryPoint, configJSON, impl.CreatedAt)
	return err
}

// --- AssignmentStore --------------------------------------------------------

const assignmentColumns = `id, organization_id, base_module_id, implementation_key, config, active, created_at, updated_at`

func (s *Store) GetAssignments(ctx context.Context, organizationID string) (map[string]module.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM organization_module_assignments
		WHERE organization_id = $1 AND active
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]module.Assignment)
	for rows.Next() {
		asg, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out[asg.BaseModuleID] = asg
	}
	return out, rows.Err()
}

func (s *Store) GetAssignment(ctx context.Context, organizationID, baseModuleID string) (module.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM organization_module_assignments
		WHERE organization_id = $1 AND base_module_id = $2 AND active
	`, organizationID, baseModuleID)

	asg, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return module.Assignment{}, notFound("assignment", organizationID+"/"+baseModuleID)
		}
		return module.Assignment{}, err
	}
	return asg, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(row rowScanner) (module.Assignment, error) {
	var (
		asg       module.Assignment
		configRaw []byte
	)
	err := row.Scan(&asg.ID, &asg.OrganizationID, &asg.BaseModuleID, &asg.ImplementationKey,
		&configRaw, &asg.Active, &asg.CreatedAt, &asg.UpdatedAt)
	if err != nil {
		return module.Assignment{}, err
	}
	scanJSON(configRaw, &asg.Config)
	return asg, nil
}

// UpsertAssignment inserts or replaces an assignment. Used by seeding.
func (s *Store) UpsertAssignment(ctx context.Context, asg module.Assignment) (module.Assignment, error) {
	if asg.ID == "" {
		asg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if asg.CreatedAt.IsZero() {
		asg.CreatedAt = now
	}
	asg.UpdatedAt = now

	configJSON, err := json.Marshal(asg.Config)
	if err != nil {
		return module.Assignment{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO organization_module_assignments
			(id, organization_id, base_module_id, implementation_key, config, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, base_module_id)
		DO UPDATE SET implementation_key = $4, config = $5, active = $6, updated_at = $8
	`, asg.ID, asg.OrganizationID, asg.BaseModuleID, asg.ImplementationKey,
		configJSON, asg.Active, asg.CreatedAt, asg.UpdatedAt)
	if err != nil {
		return module.Assignment{}, err
	}
	return asg, nil
}

// --- OrganizationStore ------------------------------------------------------

const organizationColumns = `id, legal_name, trading_name, slug, client_type, implementation_config,
		is_implementation_complete, implementation_date, implementation_notes, created_at, updated_at`

func (s *Store) GetOrganization(ctx context.Context, id string) (organization.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE id = $1
	`, id)

	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return organization.Organization{}, notFound("organization", id)
		}
		return organization.Organization{}, err
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]organization.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []organization.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func scanOrganization(row rowScanner) (organization.Organization, error) {
	var (
		org         organization.Organization
		tradingName sql.NullString
		slug        sql.NullString
		notes       sql.NullString
		implDate    sql.NullTime
		configRaw   []byte
	)
	err := row.Scan(&org.ID, &org.LegalName, &tradingName, &slug, &org.ClientType, &configRaw,
		&org.IsImplementationComplete, &implDate, &notes, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return organization.Organization{}, err
	}
	org.TradingName = tradingName.String
	org.Slug = slug.String
	org.ImplementationNotes = notes.String
	if implDate.Valid {
		t := implDate.Time
		org.ImplementationDate = &t
	}
	scanJSON(configRaw, &org.ImplementationConfig)
	return org, nil
}

// UpsertOrganization inserts or replaces a tenant record. Used by seeding.
func (s *Store) UpsertOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	configJSON, err := json.Marshal(org.ImplementationConfig)
	if err != nil {
		return organization.Organization{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO organizations
			(id, legal_name, trading_name, slug, client_type, implementation_config,
			 is_implementation_complete, implementation_date, implementation_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			legal_name = $2, trading_name = $3, slug = $4, client_type = $5,
			implementation_config = $6, is_implementation_complete = $7,
			implementation_date = $8, implementation_notes = $9, updated_at = $11
	`, org.ID, org.LegalName, org.TradingName, org.Slug, org.ClientType, configJSON,
		org.IsImplementationComplete, org.ImplementationDate, org.ImplementationNotes,
		org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return organization.Organization{}, err
	}
	return org, nil
}

// --- MaintenanceStore -------------------------------------------------------

func (s *Store) GetMaintenanceStatus(ctx context.Context) (maintenance.Status, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT in_maintenance, reason, updated_at
		FROM maintenance_status
		WHERE id = 1
	`)

	var st maintenance.Status
	if err := row.Scan(&st.InMaintenance, &st.Reason, &st.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return maintenance.Status{}, notFound("maintenance status", "1")
		}
		return maintenance.Status{}, err
	}
	return st, nil
}

func (s *Store) SetMaintenanceStatus(ctx context.Context, status maintenance.Status) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance_status (id, in_maintenance, reason, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET in_maintenance = $1, reason = $2, updated_at = $3
	`, status.InMaintenance, status.Reason, status.UpdatedAt)
	return err
}
