package providers

import "testing"

func TestOpenAICalculateCost(t *testing.T) {
	p := NewOpenAIProvider("test-key")

	cost, ok := p.CalculateCost("gpt-4o", 1000, 1000)
	if !ok {
		t.Fatal("expected known pricing for gpt-4o")
	}
	// 1000 tokens = 0.001M: input 0.001*2.50=0.0025, output 0.001*10.0=0.010
	if want := 0.0125; abs(cost-want) > 0.0001 {
		t.Errorf("cost = %v, want %v", cost, want)
	}

	if _, ok := p.CalculateCost("unknown-model", 1000, 1000); ok {
		t.Error("expected no pricing for unknown model")
	}
}

func TestAnthropicCalculateCost(t *testing.T) {
	p := NewAnthropicProvider("test-key")

	cost, ok := p.CalculateCost("claude-3-5-sonnet-20241022", 1000, 1000)
	if !ok {
		t.Fatal("expected known pricing for claude-3-5-sonnet")
	}
	if want := 0.018; abs(cost-want) > 0.0001 {
		t.Errorf("cost = %v, want %v", cost, want)
	}

	cost, ok = p.CalculateCost("claude-3-haiku-20240307", 10_000, 10_000)
	if !ok {
		t.Fatal("expected known pricing for claude-3-haiku")
	}
	if want := 0.015; abs(cost-want) > 0.0001 {
		t.Errorf("cost = %v, want %v", cost, want)
	}
}

func TestGoogleCalculateCost(t *testing.T) {
	p := NewGoogleProvider("test-key")

	cost, ok := p.CalculateCost("gemini-1.5-pro", 1000, 1000)
	if !ok {
		t.Fatal("expected known pricing for gemini-1.5-pro")
	}
	// 1000 tokens = 0.001M: input 0.001*1.25=0.00125, output 0.001*5.0=0.005
	if want := 0.00625; abs(cost-want) > 0.0001 {
		t.Errorf("cost = %v, want %v", cost, want)
	}

	cost, ok = p.CalculateCost("gemini-1.5-flash", 10_000, 10_000)
	if !ok {
		t.Fatal("expected known pricing for gemini-1.5-flash")
	}
	if want := 0.00375; abs(cost-want) > 0.0001 {
		t.Errorf("cost = %v, want %v", cost, want)
	}

	if _, ok := p.CalculateCost("unknown-model", 1000, 1000); ok {
		t.Error("expected no pricing for unknown model")
	}
}

func TestValidateModel(t *testing.T) {
	p := NewAnthropicProvider("test-key")

	if err := ValidateModel(p, "claude-3-5-sonnet-20241022"); err != nil {
		t.Errorf("expected supported model to validate, got %v", err)
	}
	if err := ValidateModel(p, "invalid-model"); err == nil {
		t.Error("expected error for unsupported model")
	}

	generic := NewGenericProvider()
	if err := ValidateModel(generic, "anything-goes"); err != nil {
		t.Errorf("generic provider should accept any model, got %v", err)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
