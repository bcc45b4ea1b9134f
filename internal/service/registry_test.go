package service

import (
	"context"
	"testing"

	"github.com/computeuse/backend/internal/types"
)

type mockProvider struct {
	id        string
	gotToolID string
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "A mock service for testing",
		Category:     types.CategoryCompute,
		Capabilities: []string{"execute", "restart"},
		Tools: []types.Tool{
			{
				ID:          m.id + ".test",
				Name:        "Test Tool",
				Description: "A test tool",
				Returns:     "string",
			},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	m.gotToolID = toolID
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"result": "success"},
	}, nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{id: "test"}

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Get("test"); !ok {
		t.Error("Service should be registered")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test"})
	r.Unregister("test")

	if _, ok := r.Get("test"); ok {
		t.Error("Service should be gone after Unregister")
	}
}

func TestList(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test2"})
	r.Register(&mockProvider{id: "test1"})

	services := r.List(nil)
	if len(services) != 2 {
		t.Fatalf("Expected 2 services, got %d", len(services))
	}
	if services[0].ID != "test1" || services[1].ID != "test2" {
		t.Errorf("Expected services sorted by ID, got %s, %s", services[0].ID, services[1].ID)
	}

	cat := types.CategoryCompute
	filtered := r.List(&cat)
	if len(filtered) != 2 {
		t.Errorf("Expected 2 compute services, got %d", len(filtered))
	}

	other := types.CategoryTerminal
	if got := r.List(&other); len(got) != 0 {
		t.Errorf("Expected 0 terminal services, got %d", len(got))
	}
}

func TestDiscover(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "bash"})

	results := r.Discover("bash execute restart", 5)
	if len(results) == 0 {
		t.Fatal("Should discover bash service")
	}

	if results[0].ID != "bash" {
		t.Errorf("Expected bash service, got %s", results[0].ID)
	}
}

func TestExecute(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{id: "test"}
	r.Register(p)

	ctx := context.Background()
	result, err := r.Execute(ctx, "test.test", map[string]interface{}{}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected successful execution")
	}
	if p.gotToolID != "test.test" {
		t.Errorf("Expected provider to receive full tool ID, got %s", p.gotToolID)
	}
}

func TestExecuteBareServiceID(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{id: "bash"}
	r.Register(p)

	result, err := r.Execute(context.Background(), "bash", nil, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected successful execution")
	}
	if p.gotToolID != "bash" {
		t.Errorf("Expected provider to receive bare tool ID, got %s", p.gotToolID)
	}
}

func TestExecuteUnknownService(t *testing.T) {
	r := NewRegistry()

	result, err := r.Execute(context.Background(), "missing.tool", nil, nil)
	if err == nil {
		t.Fatal("Expected error for unknown service")
	}
	if result == nil || result.Success {
		t.Error("Expected failed result for unknown service")
	}
	if result.Error == nil || *result.Error != "service not found: missing" {
		t.Errorf("Unexpected error message: %v", result.Error)
	}
}

func TestExecuteEmptyToolID(t *testing.T) {
	r := NewRegistry()

	result, err := r.Execute(context.Background(), "", nil, nil)
	if err == nil {
		t.Fatal("Expected error for empty tool ID")
	}
	if result == nil || result.Success {
		t.Error("Expected failed result for empty tool ID")
	}
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test1"})
	r.Register(&mockProvider{id: "test2"})

	stats := r.Stats()
	totalServices := stats["total_services"].(int)
	if totalServices != 2 {
		t.Errorf("Expected 2 total services, got %d", totalServices)
	}

	totalTools := stats["total_tools"].(int)
	if totalTools != 2 {
		t.Errorf("Expected 2 total tools, got %d", totalTools)
	}
}
