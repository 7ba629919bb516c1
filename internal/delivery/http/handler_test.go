package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/config"
	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/redeem"
	clientmock "github.com/gib-ens/gasless-registrar/internal/redeem/mock"
	"github.com/gib-ens/gasless-registrar/internal/service"
	storemock "github.com/gib-ens/gasless-registrar/internal/store/mock"
)

const (
	testPolicy  = "launch-party"
	testAddress = "0x1111111111111111111111111111111111111111"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	bundle *service.Bundle
}

func (f *fakeResolver) ForPolicy(ctx context.Context, name string) (*service.Bundle, error) {
	if f.bundle == nil || name != testPolicy {
		return nil, domain.ErrPolicyNotFound
	}
	return f.bundle, nil
}

type testEnv struct {
	router  *gin.Engine
	ens     *clientmock.ENSResolver
	voucher *clientmock.VoucherAuthority
	builder *clientmock.OperationBuilder
}

func setupTestRouter() *testEnv {
	logger := zap.NewNop()
	env := &testEnv{
		ens:     clientmock.NewENSResolver("party", 5),
		voucher: &clientmock.VoucherAuthority{},
		builder: &clientmock.OperationBuilder{},
	}
	svc := redeem.NewService(storemock.NewMockStore(), env.ens, env.voucher, env.builder, testPolicy, 0, logger)
	resolver := &fakeResolver{bundle: &service.Bundle{
		Policy: &config.PolicyConfig{Name: testPolicy, EventName: "Launch Party", NetworkID: "11155111"},
		Redeem: svc,
	}}

	router := gin.New()
	regHandler := NewRegistrationHandler(resolver, logger)
	jobHandler := NewJobHandler(resolver, logger)
	policyHandler := NewPolicyHandler(resolver, logger)

	router.GET("/api/event/:policy/job/:jobId/step/:stepId", jobHandler.StepStatus)
	router.GET("/:policy", policyHandler.Get)
	router.GET("/:policy/:address/current", regHandler.Current)
	router.GET("/:policy/:address/:domain/check", regHandler.Check)
	router.POST("/:policy/:address/:domain/register", regHandler.Register)

	env.router = router
	return env
}

func doRequest(env *testEnv, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestCheckHandler_Available(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, http.MethodGet, fmt.Sprintf("/%s/%s/party/check", testPolicy, testAddress))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.AvailabilityResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !result.IsAvailable {
		t.Errorf("expected available, got %+v", result)
	}
	if result.PurchaseInfo == nil || result.PurchaseInfo.NormalizedDomainName != "party" {
		t.Errorf("expected purchase info for party, got %+v", result.PurchaseInfo)
	}
}

func TestCheckHandler_InvalidAddress(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, http.MethodGet, fmt.Sprintf("/%s/not-an-address/party/check", testPolicy))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestCheckHandler_UnknownPolicy(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, http.MethodGet, fmt.Sprintf("/other-party/%s/party/check", testAddress))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestRegisterHandler_CreatesJob(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, http.MethodPost, fmt.Sprintf("/%s/%s/party/register", testPolicy, testAddress))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job domain.RedeemJob
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if job.ID == "" {
		t.Error("expected non-empty job ID")
	}
	if len(job.Steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(job.Steps))
	}
}

func TestRegisterHandler_ConflictReturnsExistingJob(t *testing.T) {
	env := setupTestRouter()

	first := doRequest(env, http.MethodPost, fmt.Sprintf("/%s/%s/party/register", testPolicy, testAddress))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", first.Code)
	}
	var job domain.RedeemJob
	if err := json.Unmarshal(first.Body.Bytes(), &job); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	second := doRequest(env, http.MethodPost, fmt.Sprintf("/%s/%s/party/register", testPolicy, testAddress))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", second.Code, second.Body.String())
	}
	var conflict struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &conflict); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if conflict.JobID != job.ID {
		t.Errorf("expected existing job %s, got %s", job.ID, conflict.JobID)
	}
}

func TestRegisterHandler_Unavailable(t *testing.T) {
	env := setupTestRouter()
	env.ens.Availability = domain.Unavailable(domain.ReasonUnavailable)

	w := doRequest(env, http.MethodPost, fmt.Sprintf("/%s/%s/party/register", testPolicy, testAddress))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	var result domain.AvailabilityResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result.Reason != domain.ReasonUnavailable {
		t.Errorf("expected reason unavailable, got %s", result.Reason)
	}
}

func TestCurrentHandler(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, http.MethodGet, fmt.Sprintf("/%s/%s/current", testPolicy, testAddress))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 with no job, got %d", w.Code)
	}

	created := doRequest(env, http.MethodPost, fmt.Sprintf("/%s/%s/party/register", testPolicy, testAddress))
	if created.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", created.Code)
	}

	w = doRequest(env, http.MethodGet, fmt.Sprintf("/%s/%s/current", testPolicy, testAddress))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStepStatusHandler(t *testing.T) {
	env := setupTestRouter()

	created := doRequest(env, http.MethodPost, fmt.Sprintf("/%s/%s/party/register", testPolicy, testAddress))
	if created.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", created.Code)
	}
	var job domain.RedeemJob
	if err := json.Unmarshal(created.Body.Bytes(), &job); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	w := doRequest(env, http.MethodGet,
		fmt.Sprintf("/api/event/%s/job/%s/step/%s", testPolicy, job.ID, job.Steps[0].ID))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var status domain.StepStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if status.State != domain.StateReady {
		t.Errorf("expected ready commitment step, got %s", status.State)
	}
}

func TestStepStatusHandler_UnknownJob(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, http.MethodGet,
		fmt.Sprintf("/api/event/%s/job/no-such-job/step/no-such-step", testPolicy))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestPolicyHandler_Get(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, http.MethodGet, "/"+testPolicy)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var policy config.PublicPolicy
	if err := json.Unmarshal(w.Body.Bytes(), &policy); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if policy.Name != testPolicy || policy.EventName != "Launch Party" {
		t.Errorf("unexpected policy payload: %+v", policy)
	}
	if policy.NetworkID != "11155111" {
		t.Errorf("expected network id 11155111, got %s", policy.NetworkID)
	}
}
