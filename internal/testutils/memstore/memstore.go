// Package memstore holds in-memory implementations of the service store interfaces
// for tests.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
)

// DB is an in-memory stand-in for the postgres repositories. Each store type below
// is a view over the same data so joins and cascades behave like the real schema.
type DB struct {
	mu          sync.Mutex
	companies   map[uuid.UUID]*models.Company
	users       map[uuid.UUID]*models.User
	campaigns   map[uuid.UUID]*models.Campaign
	assignments []models.CampaignAssignment
	images      map[uuid.UUID]*models.Image
	audit       []models.AuditLog
	sessions    map[uuid.UUID]*models.UserSession
	resets      map[string]*models.PasswordResetToken
}

func NewDB() *DB {
	return &DB{
		companies: map[uuid.UUID]*models.Company{},
		users:     map[uuid.UUID]*models.User{},
		campaigns: map[uuid.UUID]*models.Campaign{},
		images:    map[uuid.UUID]*models.Image{},
		sessions:  map[uuid.UUID]*models.UserSession{},
		resets:    map[string]*models.PasswordResetToken{},
	}
}

func (db *DB) Companies() Companies     { return Companies{db} }
func (db *DB) Users() Users             { return Users{db} }
func (db *DB) Campaigns() Campaigns     { return Campaigns{db} }
func (db *DB) Assignments() Assignments { return Assignments{db} }
func (db *DB) Images() Images           { return Images{db} }
func (db *DB) Audit() Audit             { return Audit{db} }
func (db *DB) Sessions() Sessions       { return Sessions{db} }
func (db *DB) Resets() Resets           { return Resets{db} }

// SetUserActive flips the flag without touching sessions.
func (db *DB) SetUserActive(id uuid.UUID, active bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u, ok := db.users[id]; ok {
		u.IsActive = active
	}
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// --- companies ---

type Companies struct{ db *DB }

func (r Companies) Create(_ context.Context, c *models.Company) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.companies {
		if strings.EqualFold(existing.Name, c.Name) {
			return apperr.Conflict("a company with this name already exists")
		}
	}
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	cp := *c
	r.db.companies[c.ID] = &cp
	return nil
}

func (r Companies) GetByID(_ context.Context, id uuid.UUID) (*models.Company, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.companies[id]
	if !ok {
		return nil, apperr.NotFound("company")
	}
	cp := *c
	return &cp, nil
}

func (r Companies) Update(_ context.Context, c *models.Company) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.companies[c.ID]; !ok {
		return apperr.NotFound("company")
	}
	c.UpdatedAt = time.Now()
	cp := *c
	r.db.companies[c.ID] = &cp
	return nil
}

func (r Companies) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.companies[id]; !ok {
		return apperr.NotFound("company")
	}
	for _, u := range r.db.users {
		if u.CompanyID != nil && *u.CompanyID == id {
			return apperr.Conflict("company is still referenced by other records")
		}
	}
	for _, c := range r.db.campaigns {
		if c.CompanyID == id {
			return apperr.Conflict("company is still referenced by other records")
		}
	}
	delete(r.db.companies, id)
	return nil
}

func (r Companies) List(_ context.Context, f repositories.CompanyFilter) ([]models.Company, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Company
	for _, c := range r.db.companies {
		if len(f.IDs) > 0 && !containsID(f.IDs, c.ID) {
			continue
		}
		if f.IsActive != nil && c.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *c)
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

// --- users ---

type Users struct{ db *DB }

func (r Users) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("a user with this email already exists")
		}
	}
	u.ID = uuid.New()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	r.db.users[u.ID] = &cp
	return nil
}

func (r Users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (r Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (r Users) Update(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.users[u.ID]
	if !ok {
		return apperr.NotFound("user")
	}
	for _, other := range r.db.users {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return apperr.Conflict("a user with this email already exists")
		}
	}
	u.PasswordHash = existing.PasswordHash
	u.UpdatedAt = time.Now()
	cp := *u
	r.db.users[u.ID] = &cp
	return nil
}

func (r Users) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return apperr.NotFound("user")
	}
	u.PasswordHash = hash
	return nil
}

func (r Users) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (r Users) List(_ context.Context, f repositories.UserFilter) ([]models.User, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.User
	for _, u := range r.db.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.CompanyID != nil && (u.CompanyID == nil || *u.CompanyID != *f.CompanyID) {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		out = append(out, *u)
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

// --- campaigns ---

type Campaigns struct{ db *DB }

func (r Campaigns) Create(_ context.Context, c *models.Campaign) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	cp := *c
	r.db.campaigns[c.ID] = &cp
	return nil
}

func (r Campaigns) withCompany(c *models.Campaign) models.CampaignWithCompany {
	name := ""
	if co, ok := r.db.companies[c.CompanyID]; ok {
		name = co.Name
	}
	return models.CampaignWithCompany{Campaign: *c, CompanyName: name}
}

func (r Campaigns) GetByID(_ context.Context, id uuid.UUID) (*models.CampaignWithCompany, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.campaigns[id]
	if !ok {
		return nil, apperr.NotFound("campaign")
	}
	out := r.withCompany(c)
	return &out, nil
}

func (r Campaigns) visible(c *models.Campaign, scope rbac.Scope) bool {
	switch {
	case scope.Deny:
		return false
	case scope.Unrestricted:
		return true
	case scope.CompanyID != nil:
		return c.CompanyID == *scope.CompanyID
	case scope.ContractorID != nil:
		return r.db.assigned(c.ID, *scope.ContractorID)
	}
	return false
}

func (r Campaigns) IsVisible(_ context.Context, id uuid.UUID, scope rbac.Scope) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.campaigns[id]
	return ok && r.visible(c, scope), nil
}

func (r Campaigns) Update(_ context.Context, c *models.Campaign) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.campaigns[c.ID]
	if !ok {
		return apperr.NotFound("campaign")
	}
	existing.Name, existing.Description = c.Name, c.Description
	existing.StartDate, existing.EndDate = c.StartDate, c.EndDate
	existing.UpdatedAt = time.Now()
	c.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r Campaigns) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.CampaignStatus, completedAt *time.Time) (time.Time, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.campaigns[id]
	if !ok || c.Status != from {
		return time.Time{}, apperr.Conflict("campaign status changed concurrently, reload and retry")
	}
	c.Status = to
	if completedAt != nil {
		c.CompletedAt = completedAt
	}
	c.UpdatedAt = time.Now()
	return c.UpdatedAt, nil
}

func (r Campaigns) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.campaigns[id]; !ok {
		return apperr.NotFound("campaign")
	}
	delete(r.db.campaigns, id)
	for imgID, img := range r.db.images {
		if img.CampaignID == id {
			delete(r.db.images, imgID)
		}
	}
	kept := r.db.assignments[:0]
	for _, a := range r.db.assignments {
		if a.CampaignID != id {
			kept = append(kept, a)
		}
	}
	r.db.assignments = kept
	return nil
}

func (r Campaigns) List(_ context.Context, f repositories.CampaignFilter) ([]models.CampaignWithCompany, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.CampaignWithCompany
	for _, c := range r.db.campaigns {
		if !r.visible(c, f.Scope) {
			continue
		}
		if f.CompanyID != nil && c.CompanyID != *f.CompanyID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		out = append(out, r.withCompany(c))
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r Campaigns) Stats(_ context.Context, id uuid.UUID) (*models.CampaignStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s := &models.CampaignStats{CampaignID: id}
	for _, img := range r.db.images {
		if img.CampaignID != id {
			continue
		}
		s.TotalImages++
		switch img.Status {
		case models.ImageStatusPending:
			s.PendingImages++
		case models.ImageStatusApproved:
			s.ApprovedImages++
		case models.ImageStatusRejected:
			s.RejectedImages++
		}
	}
	for _, a := range r.db.assignments {
		if a.CampaignID == id {
			s.AssignedContractors++
		}
	}
	return s, nil
}

// --- assignments ---

func (db *DB) assigned(campaignID, contractorID uuid.UUID) bool {
	for _, a := range db.assignments {
		if a.CampaignID == campaignID && a.ContractorID == contractorID {
			return true
		}
	}
	return false
}

type Assignments struct{ db *DB }

func (r Assignments) Create(_ context.Context, a *models.CampaignAssignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.assigned(a.CampaignID, a.ContractorID) {
		return apperr.Conflict("contractor is already assigned to this campaign")
	}
	a.ID = uuid.New()
	a.AssignedAt = time.Now()
	r.db.assignments = append(r.db.assignments, *a)
	return nil
}

func (r Assignments) Delete(_ context.Context, campaignID, contractorID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, a := range r.db.assignments {
		if a.CampaignID == campaignID && a.ContractorID == contractorID {
			r.db.assignments = append(r.db.assignments[:i], r.db.assignments[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("assignment")
}

func (r Assignments) Exists(_ context.Context, campaignID, contractorID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.assigned(campaignID, contractorID), nil
}

func (r Assignments) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]models.AssignmentWithContractor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.AssignmentWithContractor{}
	for _, a := range r.db.assignments {
		if a.CampaignID != campaignID {
			continue
		}
		row := models.AssignmentWithContractor{CampaignAssignment: a}
		if u, ok := r.db.users[a.ContractorID]; ok {
			row.ContractorEmail, row.ContractorFirstName, row.ContractorLastName = u.Email, u.FirstName, u.LastName
		}
		out = append(out, row)
	}
	return out, nil
}

func (r Assignments) ContractorIDs(_ context.Context, campaignID uuid.UUID) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []uuid.UUID
	for _, a := range r.db.assignments {
		if a.CampaignID == campaignID {
			ids = append(ids, a.ContractorID)
		}
	}
	return ids, nil
}

func (r Assignments) CountByContractor(_ context.Context, contractorID uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, a := range r.db.assignments {
		if a.ContractorID == contractorID {
			n++
		}
	}
	return n, nil
}

// --- images ---

type Images struct{ db *DB }

func (r Images) Create(_ context.Context, img *models.Image) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	img.ID = uuid.New()
	img.CreatedAt, img.UpdatedAt = time.Now(), time.Now()
	cp := *img
	r.db.images[img.ID] = &cp
	return nil
}

func (r Images) join(img *models.Image) models.ImageWithCampaign {
	out := models.ImageWithCampaign{Image: *img}
	if c, ok := r.db.campaigns[img.CampaignID]; ok {
		out.CampaignName, out.CompanyID = c.Name, c.CompanyID
	}
	if u, ok := r.db.users[img.UploadedBy]; ok {
		out.UploaderFirstName, out.UploaderLastName = u.FirstName, u.LastName
	}
	return out
}

func (r Images) GetByID(_ context.Context, id uuid.UUID) (*models.ImageWithCampaign, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	img, ok := r.db.images[id]
	if !ok {
		return nil, apperr.NotFound("image")
	}
	out := r.join(img)
	return &out, nil
}

func (r Images) List(_ context.Context, f repositories.ImageFilter) ([]models.ImageWithCampaign, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	campaigns := Campaigns{r.db}
	var out []models.ImageWithCampaign
	for _, img := range r.db.images {
		c, ok := r.db.campaigns[img.CampaignID]
		if !ok || !campaigns.visible(c, f.Scope) {
			continue
		}
		if f.CampaignID != nil && img.CampaignID != *f.CampaignID {
			continue
		}
		if f.UploadedBy != nil && img.UploadedBy != *f.UploadedBy {
			continue
		}
		if f.Status != nil && img.Status != *f.Status {
			continue
		}
		out = append(out, r.join(img))
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r Images) Review(_ context.Context, id uuid.UUID, status models.ImageStatus, reason *string, reviewerID uuid.UUID) (time.Time, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	img, ok := r.db.images[id]
	if !ok || img.Status != models.ImageStatusPending {
		return time.Time{}, apperr.Conflict("image has already been reviewed")
	}
	now := time.Now()
	img.Status, img.RejectionReason, img.ReviewedBy, img.ReviewedAt = status, reason, &reviewerID, &now
	return now, nil
}

func (r Images) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.images[id]; !ok {
		return apperr.NotFound("image")
	}
	delete(r.db.images, id)
	return nil
}

func (r Images) StoredPaths(_ context.Context, campaignID uuid.UUID) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var paths []string
	for _, img := range r.db.images {
		if img.CampaignID != campaignID {
			continue
		}
		paths = append(paths, img.FilePath)
		if img.HasThumbnail() {
			paths = append(paths, *img.ThumbnailPath)
		}
	}
	return paths, nil
}

// --- audit ---

type Audit struct{ db *DB }

func (r Audit) Log(_ context.Context, e models.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	r.db.audit = append(r.db.audit, e)
	return nil
}

func (r Audit) List(_ context.Context, f repositories.AuditFilter) ([]models.AuditLog, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.AuditLog
	for _, e := range r.db.audit {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.EntityType != "" && e.EntityType != f.EntityType {
			continue
		}
		out = append(out, e)
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r Audit) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var kept []models.AuditLog
	for _, e := range r.db.audit {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	n := len(r.db.audit) - len(kept)
	r.db.audit = kept
	return int64(n), nil
}

// Actions lists the recorded audit actions in order.
func (db *DB) Actions() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]string, len(db.audit))
	for i, e := range db.audit {
		out[i] = e.Action
	}
	return out
}

// --- sessions ---

type Sessions struct{ db *DB }

func (r Sessions) Create(_ context.Context, s *models.UserSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.CreatedAt = time.Now()
	cp := *s
	r.db.sessions[s.ID] = &cp
	return nil
}

func (r Sessions) GetByTokenHash(_ context.Context, hash string) (*models.UserSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.sessions {
		if s.TokenHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("session")
}

func (r Sessions) Touch(_ context.Context, id uuid.UUID, _ time.Duration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.sessions[id]; ok {
		now := time.Now()
		s.LastUsedAt = &now
	}
	return nil
}

func (r Sessions) Revoke(_ context.Context, id, userID uuid.UUID) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok || s.UserID != userID || s.RevokedAt != nil {
		return "", apperr.NotFound("session")
	}
	now := time.Now()
	s.RevokedAt = &now
	return s.TokenHash, nil
}

func (db *DB) revokeAll(userID uuid.UUID, except *uuid.UUID) []string {
	var hashes []string
	now := time.Now()
	for _, s := range db.sessions {
		if s.UserID != userID || s.RevokedAt != nil || (except != nil && s.ID == *except) {
			continue
		}
		s.RevokedAt = &now
		hashes = append(hashes, s.TokenHash)
	}
	return hashes
}

func (r Sessions) RevokeAllForUser(_ context.Context, userID uuid.UUID, except *uuid.UUID) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.revokeAll(userID, except), nil
}

func (r Sessions) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]models.UserSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.UserSession{}
	for _, s := range r.db.sessions {
		if s.UserID == userID && s.IsActive(time.Now()) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r Sessions) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, s := range r.db.sessions {
		if s.ExpiresAt.Before(cutoff) || (s.RevokedAt != nil && s.RevokedAt.Before(cutoff)) {
			delete(r.db.sessions, id)
			n++
		}
	}
	return n, nil
}

// --- password resets ---

type Resets struct{ db *DB }

func (r Resets) Create(_ context.Context, t *models.PasswordResetToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for hash, existing := range r.db.resets {
		if existing.UserID == t.UserID && existing.UsedAt == nil {
			delete(r.db.resets, hash)
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	cp := *t
	r.db.resets[t.TokenHash] = &cp
	return nil
}

func (r Resets) Consume(_ context.Context, hash, newPasswordHash string, now time.Time) (*repositories.ResetResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.resets[hash]
	if !ok || !t.IsUsable(now) {
		return nil, repositories.ErrResetTokenUnusable
	}
	u, ok := r.db.users[t.UserID]
	if !ok || !u.IsActive {
		return nil, repositories.ErrResetTokenUnusable
	}
	t.UsedAt = &now
	u.PasswordHash = newPasswordHash
	return &repositories.ResetResult{UserID: t.UserID, RevokedHashes: r.db.revokeAll(t.UserID, nil)}, nil
}

func (r Resets) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for hash, t := range r.db.resets {
		if t.ExpiresAt.Before(cutoff) || (t.UsedAt != nil && t.UsedAt.Before(cutoff)) {
			delete(r.db.resets, hash)
			n++
		}
	}
	return n, nil
}

// --- cache and events ---

type Cache struct {
	mu      sync.Mutex
	entries map[string]rbac.Actor
}

func NewCache() *Cache { return &Cache{entries: map[string]rbac.Actor{}} }

func (c *Cache) Get(_ context.Context, hash string) (*rbac.Actor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[hash]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (c *Cache) Set(_ context.Context, hash string, a rbac.Actor, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = a
	return nil
}

func (c *Cache) Delete(_ context.Context, hashes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hashes {
		delete(c.entries, h)
	}
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type Published struct {
	Stream string
	Event  events.Event
}

type Publisher struct {
	mu     sync.Mutex
	events []Published
}

func (p *Publisher) Publish(_ context.Context, stream string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{Stream: stream, Event: e})
	return nil
}

// Last returns the most recent event, or the zero value when none was published.
func (p *Publisher) Last() Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return Published{}
	}
	return p.events[len(p.events)-1]
}

// Mirror records the keys mirrored and removed.
type Mirror struct {
	mu      sync.Mutex
	put     []string
	removed []string
}

func (m *Mirror) Put(_ context.Context, key, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put = append(m.put, key)
	return nil
}

func (m *Mirror) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, keys...)
	return nil
}

// Len returns the number of published events.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (m *Mirror) PutKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.put...)
}

func (m *Mirror) RemovedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

