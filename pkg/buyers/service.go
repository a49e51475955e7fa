package buyers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/leadintake/pkg/audit"
	"github.com/jordanlanch/leadintake/pkg/cache"
	"github.com/jordanlanch/leadintake/pkg/logger"
	"github.com/jordanlanch/leadintake/pkg/metrics"
	"github.com/jordanlanch/leadintake/pkg/models"
	"gorm.io/gorm"
)

// Sentinel errors surfaced to the HTTP boundary.
var (
	// ErrNotFound covers both absent buyers and buyers owned by someone
	// else, so callers cannot probe for other users' records.
	ErrNotFound = errors.New("buyer not found")
	// ErrConflict means the caller's updatedAt is stale: the buyer was
	// modified since they last read it.
	ErrConflict = errors.New("buyer was modified by another user")
)

const defaultSearchCacheTTL = time.Minute

// Identity is the authenticated caller, as provided by the JWT middleware.
type Identity struct {
	ID   string
	Role string
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == models.RoleAdmin
}

// canMutate is the single ownership predicate: the owner or an admin may
// read, mutate, or delete a buyer.
func canMutate(who Identity, b *models.Buyer) bool {
	return b.OwnerID == who.ID || who.IsAdmin()
}

// Service handles buyer business logic.
type Service struct {
	db       *gorm.DB
	cache    *cache.Client
	audit    *audit.Service
	log      logger.Logger
	metrics  *metrics.Metrics
	cacheTTL time.Duration
}

// NewService creates a new buyer service. The cache client may be nil, in
// which case search results are not cached.
func NewService(db *gorm.DB, cacheClient *cache.Client, auditSvc *audit.Service, log logger.Logger) *Service {
	return &Service{
		db:       db,
		cache:    cacheClient,
		audit:    auditSvc,
		log:      log,
		cacheTTL: defaultSearchCacheTTL,
	}
}

// WithMetrics attaches cache hit/miss counters to the service.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// WithCacheTTL overrides the search cache expiration. Non-positive values
// are ignored.
func (s *Service) WithCacheTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// now returns the current time truncated to microseconds, matching what
// Postgres stores. The optimistic-concurrency check compares timestamps
// for exact equality, so the in-memory and round-tripped values must agree.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Create validates the input and persists a new buyer owned by the caller,
// together with its creation history entry.
func (s *Service) Create(ctx context.Context, who Identity, in models.BuyerInput) (*models.Buyer, error) {
	normalized, err := Validate(in)
	if err != nil {
		return nil, err
	}

	ts := now()
	buyer := models.Buyer{
		ID:           uuid.NewString(),
		OwnerID:      who.ID,
		FullName:     normalized.FullName,
		Email:        normalized.Email,
		Phone:        normalized.Phone,
		City:         normalized.City,
		PropertyType: normalized.PropertyType,
		BHK:          normalized.BHK,
		Purpose:      normalized.Purpose,
		BudgetMin:    normalized.BudgetMin,
		BudgetMax:    normalized.BudgetMax,
		Timeline:     normalized.Timeline,
		Source:       normalized.Source,
		Status:       normalized.Status,
		Notes:        normalized.Notes,
		Tags:         models.Tags(normalized.Tags),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&buyer).Error; err != nil {
			return fmt.Errorf("failed to create buyer: %w", err)
		}
		return s.audit.RecordCreated(tx, buyer.ID, who.ID, normalized)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSearches(ctx, who.ID)
	return &buyer, nil
}

// Get returns a single buyer. Buyers owned by other users are reported as
// not found.
func (s *Service) Get(ctx context.Context, who Identity, id string) (*models.Buyer, error) {
	var buyer models.Buyer
	err := s.db.WithContext(ctx).First(&buyer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get buyer: %w", err)
	}
	if !canMutate(who, &buyer) {
		return nil, ErrNotFound
	}
	return &buyer, nil
}

// Update applies a full buyer payload under optimistic concurrency: the
// caller presents the updatedAt it last observed, and any mismatch with
// the stored value fails with ErrConflict without mutating anything. A
// non-empty field diff is recorded in the history inside the same
// transaction as the write.
func (s *Service) Update(ctx context.Context, who Identity, id string, in models.BuyerInput, expectedUpdatedAt time.Time) (*models.Buyer, error) {
	normalized, err := Validate(in)
	if err != nil {
		return nil, err
	}

	var current models.Buyer
	err = s.db.WithContext(ctx).First(&current, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}
	if !canMutate(who, &current) {
		return nil, ErrNotFound
	}

	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return nil, ErrConflict
	}

	changes := Diff(&current, normalized)

	ts := now()
	values := map[string]interface{}{
		"full_name":     normalized.FullName,
		"email":         normalized.Email,
		"phone":         normalized.Phone,
		"city":          normalized.City,
		"property_type": normalized.PropertyType,
		"bhk":           normalized.BHK,
		"purpose":       normalized.Purpose,
		"budget_min":    normalized.BudgetMin,
		"budget_max":    normalized.BudgetMax,
		"timeline":      normalized.Timeline,
		"source":        normalized.Source,
		"status":        normalized.Status,
		"notes":         normalized.Notes,
		"tags":          models.Tags(normalized.Tags),
		"updated_at":    ts,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The write is conditional on the timestamp we just verified, so
		// of two racing updates only one can win; the loser sees zero
		// affected rows and reports a conflict.
		res := tx.Model(&models.Buyer{}).
			Where("id = ? AND updated_at = ?", id, current.UpdatedAt).
			Updates(values)
		if res.Error != nil {
			return fmt.Errorf("failed to update buyer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		if len(changes) > 0 {
			if err := s.audit.Record(tx, id, who.ID, changes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated := current
	updated.FullName = normalized.FullName
	updated.Email = normalized.Email
	updated.Phone = normalized.Phone
	updated.City = normalized.City
	updated.PropertyType = normalized.PropertyType
	updated.BHK = normalized.BHK
	updated.Purpose = normalized.Purpose
	updated.BudgetMin = normalized.BudgetMin
	updated.BudgetMax = normalized.BudgetMax
	updated.Timeline = normalized.Timeline
	updated.Source = normalized.Source
	updated.Status = normalized.Status
	updated.Notes = normalized.Notes
	updated.Tags = models.Tags(normalized.Tags)
	updated.UpdatedAt = ts

	s.invalidateSearches(ctx, current.OwnerID)
	return &updated, nil
}

// Delete removes a buyer. Only the owner (or an admin) can delete; absent
// and not-owned records are indistinguishable to the caller. History
// entries for the buyer are retained.
func (s *Service) Delete(ctx context.Context, who Identity, id string) error {
	buyer, err := s.Get(ctx, who, id)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Buyer{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete buyer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.invalidateSearches(ctx, buyer.OwnerID)
	return nil
}

// History returns the change history of a buyer the caller can access.
func (s *Service) History(ctx context.Context, who Identity, id string, limit int) ([]models.BuyerHistory, error) {
	if _, err := s.Get(ctx, who, id); err != nil {
		return nil, err
	}
	return s.audit.ListByBuyer(ctx, id, limit)
}

// Search returns the caller's buyers matching the filter, paginated. The
// total count is computed with the same predicate as the page fetch, so
// the two are always consistent for a given filter.
func (s *Service) Search(ctx context.Context, who Identity, req models.BuyerSearchRequest) (*models.BuyerListResponse, error) {
	// Defaults. Out-of-range values are clamped rather than rejected so
	// the pagination math below never sees a non-positive page or limit.
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 10
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.SortBy == "" {
		req.SortBy = "updatedAt"
	}
	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	cacheKey := s.searchCacheKey(who.ID, req)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var response models.BuyerListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				if s.metrics != nil {
					s.metrics.CacheHits.Inc()
				}
				return &response, nil
			}
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
	}

	var total int64
	err := s.filterQuery(ctx, who.ID, req.Search, req.City, req.PropertyType, req.Status, req.Timeline).
		Model(&models.Buyer{}).
		Count(&total).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count buyers: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	totalPages := (int(total) + req.Limit - 1) / req.Limit

	var results []models.Buyer
	err = s.filterQuery(ctx, who.ID, req.Search, req.City, req.PropertyType, req.Status, req.Timeline).
		Order(orderClause(req.SortBy, req.SortOrder)).
		Limit(req.Limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query buyers: %w", err)
	}

	response := &models.BuyerListResponse{
		Data: results,
		Pagination: models.PaginationInfo{
			Page:       req.Page,
			Limit:      req.Limit,
			TotalCount: int(total),
			TotalPages: totalPages,
		},
	}

	if s.cache != nil {
		if raw, err := json.Marshal(response); err == nil {
			_ = s.cache.Set(ctx, cacheKey, raw, s.cacheTTL)
		}
	}

	return response, nil
}

// Export returns the complete matching set for the same predicate and
// ordering as Search, without pagination.
func (s *Service) Export(ctx context.Context, who Identity, req models.BuyerExportRequest) ([]models.Buyer, error) {
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "updatedAt"
	}
	sortOrder := req.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}

	var results []models.Buyer
	err := s.filterQuery(ctx, who.ID, req.Search, req.City, req.PropertyType, req.Status, req.Timeline).
		Order(orderClause(sortBy, sortOrder)).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export buyers: %w", err)
	}
	return results, nil
}

// filterQuery builds the shared owner-scoped filter predicate.
func (s *Service) filterQuery(ctx context.Context, ownerID, search, city, propertyType, status, timeline string) *gorm.DB {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)

	if search != "" {
		needle := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(full_name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(email) LIKE ?",
			needle, needle, needle,
		)
	}
	if city != "" {
		query = query.Where("city = ?", city)
	}
	if propertyType != "" {
		query = query.Where("property_type = ?", propertyType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if timeline != "" {
		query = query.Where("timeline = ?", timeline)
	}

	return query
}

// sortColumns whitelists the sortable fields.
var sortColumns = map[string]string{
	"updatedAt": "updated_at",
	"createdAt": "created_at",
	"fullName":  "full_name",
}

// orderClause builds the ORDER BY with id as the stable secondary key so
// pagination stays deterministic when the primary sort ties.
func orderClause(sortBy, sortOrder string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "updated_at"
	}
	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}

// searchCacheKey builds the cache key from the full filter specification.
func (s *Service) searchCacheKey(ownerID string, req models.BuyerSearchRequest) string {
	return fmt.Sprintf("buyers:search:%s:%s:%s:%s:%s:%s:%d:%d:%s:%s",
		ownerID, req.Search, req.City, req.PropertyType, req.Status, req.Timeline,
		req.Page, req.Limit, req.SortBy, req.SortOrder)
}

// InvalidateCache drops an owner's cached search pages. Exposed for the
// import orchestrator, which inserts buyers outside this service.
func (s *Service) InvalidateCache(ctx context.Context, ownerID string) {
	s.invalidateSearches(ctx, ownerID)
}

// invalidateSearches drops the owner's cached search pages after any
// mutation. Cache failures are logged, never surfaced.
func (s *Service) invalidateSearches(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("buyers:search:%s:*", ownerID)); err != nil {
		s.log.Warn("failed to invalidate search cache", "owner_id", ownerID, "error", err)
	}
}
