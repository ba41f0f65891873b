package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/filesecurity"
	"github.com/postertrack/backend/internal/http/handlers"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/services"
	"github.com/postertrack/backend/internal/storage"
	"github.com/postertrack/backend/internal/testutils/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	app       *fiber.App
	users     *services.UserService
	campaigns *services.CampaignService
	employee  rbac.Actor
	company   *models.Company
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{
		JWTSecret:          "router-test-secret-long-enough-1234",
		JWTIssuer:          "poster-campaigns-test",
		JWTExpiration:      time.Hour,
		SessionCacheTTL:    time.Minute,
		PasswordResetTTL:   time.Hour,
		BcryptCost:         4,
		UploadRoot:         t.TempDir(),
		MaxUploadBytes:     1 << 20,
		AllowedMIMETypes:   []string{"image/jpeg", "image/png"},
		ThumbnailMaxPx:     64,
		CORSAllowOrigins:   "*",
		RateLimitPerMinute: 100,
	}

	db := memstore.NewDB()
	files, err := storage.NewLocalStore(cfg.UploadRoot, log)
	require.NoError(t, err)
	publisher := &memstore.Publisher{}
	mirror := storage.NopMirror{}

	audit := services.NewAuditService(db.Audit(), log)
	sessions := services.NewSessionService(db.Sessions(), db.Users(), memstore.NewCache(), cfg, log)
	authService := services.NewAuthService(db.Users(), db.Resets(), sessions, audit, publisher, cfg, log)
	companies := services.NewCompanyService(db.Companies(), audit, log)
	users := services.NewUserService(db.Users(), db.Companies(), db.Assignments(), sessions, audit, cfg, log)
	campaigns := services.NewCampaignService(db.Campaigns(), db.Assignments(), db.Companies(), db.Users(), db.Images(), files, mirror, audit, publisher, log)
	scanner := filesecurity.NewScanner(cfg.MaxUploadBytes, cfg.AllowedMIMETypes, log)
	images := services.NewImageService(db.Images(), db.Campaigns(), db.Assignments(), scanner, files, mirror, audit, publisher, cfg, log)

	app := NewApp(cfg, log)
	SetupRouter(app, cfg, log, nil, sessions, Handlers{
		Auth:      handlers.NewAuthHandler(authService, sessions, log),
		Companies: handlers.NewCompanyHandler(companies, log),
		Users:     handlers.NewUserHandler(users, log),
		Campaigns: handlers.NewCampaignHandler(campaigns, log),
		Images:    handlers.NewImageHandler(images, log),
		Audit:     handlers.NewAuditHandler(audit, log),
		WSHub:     handlers.NewWSHub(nil, sessions, log),
	})

	ctx := context.Background()
	emp, err := users.Bootstrap(ctx, services.CreateUserInput{Email: "ops@example.com", Password: "opsPassw0rd", FirstName: "Ops"})
	require.NoError(t, err)
	employee := emp.Actor(uuid.New())
	company, err := companies.Create(ctx, employee, services.CompanyInput{Name: "Billboard Co"})
	require.NoError(t, err)

	return &testAPI{app: app, users: users, campaigns: campaigns, employee: employee, company: company}
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
	Meta    *struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(t, req, token)
}

func (a *testAPI) send(t *testing.T, req *nethttp.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	status, env := a.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var res struct {
		Session struct {
			Token string `json:"token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Session.Token)
	return res.Session.Token
}

// userWithToken creates a user of the given role in the test company and logs them in.
func (a *testAPI) userWithToken(t *testing.T, role rbac.Role) (*models.User, string) {
	t.Helper()
	in := services.CreateUserInput{
		Email:     uuid.NewString()[:8] + "@example.com",
		Password:  "passw0rdX",
		FirstName: string(role),
		Role:      role,
		CompanyID: &a.company.ID,
	}
	u, err := a.users.Create(context.Background(), a.employee, in)
	require.NoError(t, err)
	return u, a.login(t, u.Email, in.Password)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 90, 60))
	for x := 0; x < 90; x++ {
		for y := 0; y < 60; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y * 4), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, campaignID uuid.UUID, data []byte, contentType string) *nethttp.Request {
	t.Helper()
	return uploadRequestWithNotes(t, campaignID, data, contentType, "north wall, next to the bus stop")
}

func uploadRequestWithNotes(t *testing.T, campaignID uuid.UUID, data []byte, contentType, notes string) *nethttp.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="wall.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("notes", notes))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, fmt.Sprintf("/api/v1/campaigns/%s/images", campaignID), &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	resp, err := a.app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestLoginMeLogout(t *testing.T) {
	a := newTestAPI(t)

	status, env := a.do(t, fiber.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, env = a.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ops@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid email or password", env.Error)

	token := a.login(t, "OPS@example.com", "opsPassw0rd")
	status, env = a.do(t, fiber.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	me := decode[models.User](t, env.Data)
	assert.Equal(t, "ops@example.com", me.Email)

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = a.do(t, fiber.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status, "revoked token is rejected")
}

func TestValidationErrorsCarryFieldDetails(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t, "ops@example.com", "opsPassw0rd")

	status, env := a.do(t, fiber.MethodPost, "/api/v1/campaigns", token, map[string]string{"name": "", "company_id": "nope"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Details, "name")
	assert.Contains(t, env.Details, "company_id")

	status, _ = a.do(t, fiber.MethodGet, "/api/v1/campaigns/not-a-uuid", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = a.do(t, fiber.MethodGet, "/api/v1/campaigns/"+uuid.NewString(), token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRoleGuards(t *testing.T) {
	a := newTestAPI(t)
	_, clientToken := a.userWithToken(t, rbac.RoleClient)
	_, contractorToken := a.userWithToken(t, rbac.RoleContractor)

	status, env := a.do(t, fiber.MethodPost, "/api/v1/campaigns", clientToken, map[string]string{"name": "x", "company_id": a.company.ID.String()})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.False(t, env.Success)

	status, _ = a.do(t, fiber.MethodGet, "/api/v1/audit-logs", contractorToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = a.do(t, fiber.MethodGet, "/api/v1/images/my", clientToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCampaignAndImageFlow(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t, "ops@example.com", "opsPassw0rd")
	contractor, contractorToken := a.userWithToken(t, rbac.RoleContractor)
	_, clientToken := a.userWithToken(t, rbac.RoleClient)

	status, env := a.do(t, fiber.MethodPost, "/api/v1/campaigns", token, map[string]string{"name": "Spring posters", "company_id": a.company.ID.String()})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	campaign := decode[models.Campaign](t, env.Data)
	assert.Equal(t, models.CampaignStatusNew, campaign.Status)
	base := "/api/v1/campaigns/" + campaign.ID.String()

	status, env = a.do(t, fiber.MethodPost, base+"/contractors", token, map[string]string{"contractor_id": contractor.ID.String()})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	status, _ = a.do(t, fiber.MethodPost, base+"/contractors", token, map[string]string{"contractor_id": contractor.ID.String()})
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = a.send(t, uploadRequest(t, campaign.ID, pngBytes(t), "image/png"), contractorToken)
	assert.Equal(t, fiber.StatusBadRequest, status, "campaign is not in progress yet")

	status, env = a.do(t, fiber.MethodPatch, base+"/status", token, map[string]string{"status": "in_progress"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	status, env = a.send(t, uploadRequest(t, campaign.ID, pngBytes(t), "image/png"), contractorToken)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	img := decode[models.Image](t, env.Data)
	assert.Equal(t, models.ImageStatusPending, img.Status)
	imgPath := "/api/v1/images/" + img.ID.String()

	status, env = a.do(t, fiber.MethodGet, "/api/v1/images/my", contractorToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Total)

	resp, err := a.app.Test(withToken(httptest.NewRequest(fiber.MethodGet, imgPath+"/thumbnail", nil), clientToken), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	_ = resp.Body.Close()

	status, env = a.do(t, fiber.MethodPost, imgPath+"/reject", token, map[string]string{"reason": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Details, "reason")

	status, env = a.do(t, fiber.MethodPost, imgPath+"/approve", token, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	status, _ = a.do(t, fiber.MethodPost, imgPath+"/approve", token, nil)
	assert.Equal(t, fiber.StatusConflict, status, "already reviewed")

	status, env = a.do(t, fiber.MethodGet, base+"/stats", clientToken, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	stats := decode[models.CampaignStats](t, env.Data)
	assert.Equal(t, 1, stats.ApprovedImages)

	status, _ = a.do(t, fiber.MethodDelete, base, token, nil)
	assert.Equal(t, fiber.StatusConflict, status, "in-progress campaigns cannot be deleted")
}

func TestUploadRejectsDisguisedFile(t *testing.T) {
	a := newTestAPI(t)
	contractor, contractorToken := a.userWithToken(t, rbac.RoleContractor)
	ctx := context.Background()

	c, err := a.campaigns.Create(ctx, a.employee, services.CampaignInput{Name: "Night run", CompanyID: a.company.ID})
	require.NoError(t, err)
	_, err = a.campaigns.AssignContractor(ctx, a.employee, c.ID, contractor.ID)
	require.NoError(t, err)
	_, err = a.campaigns.ChangeStatus(ctx, a.employee, c.ID, models.CampaignStatusInProgress)
	require.NoError(t, err)

	payload := append(pngBytes(t), []byte("<?php system($_GET['c']); ?>")...)
	status, env := a.send(t, uploadRequest(t, c.ID, payload, "image/png"), contractorToken)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, env = a.send(t, uploadRequest(t, c.ID, pngBytes(t), "application/pdf"), contractorToken)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Details, "image")
}

func TestUploadNotesLimitCountsCharacters(t *testing.T) {
	a := newTestAPI(t)
	contractor, contractorToken := a.userWithToken(t, rbac.RoleContractor)
	ctx := context.Background()

	c, err := a.campaigns.Create(ctx, a.employee, services.CampaignInput{Name: "Notes", CompanyID: a.company.ID})
	require.NoError(t, err)
	_, err = a.campaigns.AssignContractor(ctx, a.employee, c.ID, contractor.ID)
	require.NoError(t, err)
	_, err = a.campaigns.ChangeStatus(ctx, a.employee, c.ID, models.CampaignStatusInProgress)
	require.NoError(t, err)

	status, env := a.send(t, uploadRequestWithNotes(t, c.ID, pngBytes(t), "image/png", strings.Repeat("ж", 2001)), contractorToken)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Details, "notes")

	notes := strings.Repeat("ж", 2000)
	status, env = a.send(t, uploadRequestWithNotes(t, c.ID, pngBytes(t), "image/png", notes), contractorToken)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	img := decode[models.Image](t, env.Data)
	require.NotNil(t, img.Notes)
	assert.Equal(t, notes, *img.Notes)
}

func withToken(req *nethttp.Request, token string) *nethttp.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
