package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"

	"github.com/patrickmn/go-cache"
	"gorm.io/datatypes"
)

// EntityResolver turns local vendors, customers and service items into
// platform ids: mapping first, then name search, then create. A duplicate
// name on create is recovered by linking to the existing record.
type EntityResolver struct {
	api      AccountingAPI
	docs     DocumentSource
	mappings MappingStore
	logs     SyncLogStore
	accounts *AccountResolver
	now      func() time.Time
}

func NewEntityResolver(api AccountingAPI, docs DocumentSource, mappings MappingStore, logs SyncLogStore, accounts *AccountResolver) *EntityResolver {
	return &EntityResolver{
		api:      api,
		docs:     docs,
		mappings: mappings,
		logs:     logs,
		accounts: accounts,
		now:      time.Now,
	}
}

type nameCandidate struct {
	ID   string
	Name string
}

type nameLookup struct {
	entityType constants.EntityType
	localID    string // empty for records with no local counterpart
	name       string
	search     func(exact bool) ([]nameCandidate, error)
	create     func(name string) (string, error)
}

// resolve runs search, create and duplicate recovery. Callers check the
// mapping table first.
func (r *EntityResolver) resolve(ctx context.Context, run *syncRun, l nameLookup) (string, error) {
	name := common.NormalizeName(l.name)
	if name == "" {
		return "", &ResolutionError{EntityType: l.entityType, LocalID: l.localID, Message: "record has no name to match on"}
	}

	matches, err := l.search(true)
	if err != nil {
		return "", err
	}
	if id := exactMatch(name, matches); id != "" {
		r.link(ctx, run, l, id, constants.ActionLinkExisting)
		return id, nil
	}

	id, createErr := l.create(name)
	if createErr == nil {
		r.link(ctx, run, l, id, constants.ActionCreate)
		return id, nil
	}
	if !providers.IsDuplicateName(createErr) {
		return "", createErr
	}

	if id, ok := providers.ConflictingID(createErr); ok {
		run.log.Infow("Recovered duplicate name from error detail", "entity_type", l.entityType, "name", name, "external_id", id)
		r.link(ctx, run, l, id, constants.ActionConflictRecovered)
		return id, nil
	}

	fuzzy, err := l.search(false)
	if err != nil {
		run.log.Warnw("Fuzzy search after duplicate name failed", "entity_type", l.entityType, "name", name, "error", err)
		return "", createErr
	}
	if id := bestMatch(name, fuzzy); id != "" {
		r.link(ctx, run, l, id, constants.ActionConflictRecovered)
		return id, nil
	}
	return "", createErr
}

func exactMatch(name string, candidates []nameCandidate) string {
	for _, c := range candidates {
		if strings.EqualFold(common.NormalizeName(c.Name), name) {
			return c.ID
		}
	}
	return ""
}

// bestMatch prefers an exact case-insensitive match, then the shortest name
// containing the wanted one.
func bestMatch(name string, candidates []nameCandidate) string {
	if id := exactMatch(name, candidates); id != "" {
		return id
	}

	want := strings.ToLower(name)
	var hits []nameCandidate
	for _, c := range candidates {
		if strings.Contains(common.NormalizeKey(c.Name), want) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return ""
	}
	sort.SliceStable(hits, func(i, j int) bool { return len(hits[i].Name) < len(hits[j].Name) })
	return hits[0].ID
}

// link persists the mapping and an audit row. Failures are logged only: the
// platform record exists and the next run will find it by name.
func (r *EntityResolver) link(ctx context.Context, run *syncRun, l nameLookup, externalID string, action constants.SyncAction) {
	if l.localID == "" {
		return
	}

	now := r.now().UTC()
	err := r.mappings.Upsert(ctx, l.entityType, &gormModels.EntityMapping{
		TenantID:     run.tenantID,
		LocalID:      l.localID,
		ExternalID:   externalID,
		SyncStatus:   constants.SyncStatusSynced,
		LastSyncedAt: &now,
	})
	if err != nil {
		run.log.Errorw("Failed to persist entity mapping", "entity_type", l.entityType, "local_id", l.localID, "external_id", externalID, "error", err)
	}

	details, _ := json.Marshal(map[string]string{"name": common.NormalizeName(l.name)})
	ext := externalID
	if err := r.logs.Append(ctx, &gormModels.SyncLogEntry{
		TenantID:   run.tenantID,
		EntityType: string(l.entityType),
		EntityID:   l.localID,
		ExternalID: &ext,
		Action:     string(action),
		Status:     string(constants.LogStatusSuccess),
		Details:    datatypes.JSON(details),
		UserID:     run.userID,
	}); err != nil {
		run.log.Warnw("Failed to append sync log", "entity_type", l.entityType, "local_id", l.localID, "error", err)
	}
}

// ============================================================================
// Vendors, customers, items
// ============================================================================

func (r *EntityResolver) ResolveVendor(ctx context.Context, run *syncRun, localID string) (string, error) {
	if m, err := r.mappings.Get(ctx, constants.EntityVendor, run.tenantID, localID); err != nil {
		return "", err
	} else if m.Linked() {
		return m.ExternalID, nil
	}

	v, err := r.docs.GetVendor(ctx, run.tenantID, localID)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", &ResolutionError{EntityType: constants.EntityVendor, LocalID: localID, Message: "vendor not found"}
	}

	return r.resolve(ctx, run, nameLookup{
		entityType: constants.EntityVendor,
		localID:    localID,
		name:       v.Name,
		search: func(exact bool) ([]nameCandidate, error) {
			found, err := r.api.QueryVendors(ctx, run.session, common.NormalizeName(v.Name), exact)
			if err != nil {
				return nil, err
			}
			out := make([]nameCandidate, 0, len(found))
			for _, f := range found {
				out = append(out, nameCandidate{ID: f.ID, Name: f.DisplayName})
			}
			return out, nil
		},
		create: func(name string) (string, error) {
			payload := providers.Vendor{DisplayName: name, CompanyName: name}
			if v.Email != nil && *v.Email != "" {
				payload.PrimaryEmailAddr = &providers.EmailAddress{Address: *v.Email}
			}
			if v.Phone != nil && *v.Phone != "" {
				payload.PrimaryPhone = &providers.PhoneNumber{FreeFormNumber: *v.Phone}
			}
			created, err := r.api.CreateVendor(ctx, run.session, payload)
			if err != nil {
				return "", err
			}
			return created.ID, nil
		},
	})
}

func (r *EntityResolver) ResolveCustomer(ctx context.Context, run *syncRun, localID string) (string, error) {
	if m, err := r.mappings.Get(ctx, constants.EntityCustomer, run.tenantID, localID); err != nil {
		return "", err
	} else if m.Linked() {
		return m.ExternalID, nil
	}

	c, err := r.docs.GetCustomer(ctx, run.tenantID, localID)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", &ResolutionError{EntityType: constants.EntityCustomer, LocalID: localID, Message: "customer not found"}
	}

	return r.resolve(ctx, run, nameLookup{
		entityType: constants.EntityCustomer,
		localID:    localID,
		name:       c.Name,
		search: func(exact bool) ([]nameCandidate, error) {
			found, err := r.api.QueryCustomers(ctx, run.session, common.NormalizeName(c.Name), exact)
			if err != nil {
				return nil, err
			}
			out := make([]nameCandidate, 0, len(found))
			for _, f := range found {
				out = append(out, nameCandidate{ID: f.ID, Name: f.DisplayName})
			}
			return out, nil
		},
		create: func(name string) (string, error) {
			payload := providers.Customer{DisplayName: name}
			if c.Email != nil && *c.Email != "" {
				payload.PrimaryEmailAddr = &providers.EmailAddress{Address: *c.Email}
			}
			if c.Phone != nil && *c.Phone != "" {
				payload.PrimaryPhone = &providers.PhoneNumber{FreeFormNumber: *c.Phone}
			}
			created, err := r.api.CreateCustomer(ctx, run.session, payload)
			if err != nil {
				return "", err
			}
			return created.ID, nil
		},
	})
}

// ResolveServiceItem maps a local catalogue item to a platform Service item.
func (r *EntityResolver) ResolveServiceItem(ctx context.Context, run *syncRun, localID string) (string, error) {
	if m, err := r.mappings.Get(ctx, constants.EntityItem, run.tenantID, localID); err != nil {
		return "", err
	} else if m.Linked() {
		return m.ExternalID, nil
	}

	it, err := r.docs.GetServiceItem(ctx, run.tenantID, localID)
	if err != nil {
		return "", err
	}
	if it == nil {
		return "", &ResolutionError{EntityType: constants.EntityItem, LocalID: localID, Message: "service item not found"}
	}

	return r.resolve(ctx, run, r.itemLookup(ctx, run, localID, it.Name, common.StringValue(it.Category), common.StringValue(it.Description)))
}

// CategoryItem finds or creates a Service item named after a line category,
// for sales lines that carry no catalogue item. Cached per run.
func (r *EntityResolver) CategoryItem(ctx context.Context, run *syncRun, category string) (string, error) {
	name := common.NormalizeName(category)
	if name == "" {
		name = "Services"
	}

	v, err := run.cache.GetOrSet(string(constants.CachePrefixCategoryItem)+strings.ToLower(name), cache.NoExpiration, func() (any, error) {
		return r.resolve(ctx, run, r.itemLookup(ctx, run, "", name, name, ""))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *EntityResolver) itemLookup(ctx context.Context, run *syncRun, localID, name, category, description string) nameLookup {
	return nameLookup{
		entityType: constants.EntityItem,
		localID:    localID,
		name:       name,
		search: func(exact bool) ([]nameCandidate, error) {
			found, err := r.api.QueryItems(ctx, run.session, common.NormalizeName(name), exact)
			if err != nil {
				return nil, err
			}
			out := make([]nameCandidate, 0, len(found))
			for _, f := range found {
				out = append(out, nameCandidate{ID: f.ID, Name: f.Name})
			}
			return out, nil
		},
		create: func(clean string) (string, error) {
			income, err := r.accounts.IncomeAccount(ctx, run, category)
			if err != nil {
				return "", fmt.Errorf("item %q: %w", clean, err)
			}
			expense, err := r.accounts.ExpenseAccount(ctx, run, category)
			if err != nil {
				return "", fmt.Errorf("item %q: %w", clean, err)
			}
			created, err := r.api.CreateItem(ctx, run.session, providers.Item{
				Name:              clean,
				Description:       description,
				Type:              "Service",
				IncomeAccountRef:  &income,
				ExpenseAccountRef: &expense,
			})
			if err != nil {
				return "", err
			}
			return created.ID, nil
		},
	}
}
