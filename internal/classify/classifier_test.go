package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify_IntentDetection(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		intent Intent
	}{
		{"how-does-explain", "how does the User model validate emails", IntentUnderstand},
		{"locate", "where is the PaymentController defined", IntentLocate},
		{"debug", "why does checkout fail with a nil error", IntentDebug},
		{"trace", "trace the call flow for OrderService", IntentTrace},
		{"compare", "what is the difference between Job and Mailer", IntentCompare},
		{"framework", "what options does ActiveRecord validation support", IntentFramework},
	}
	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.query)
			assert.Equal(t, tt.intent, got.Intent)
		})
	}
}

func TestClassifier_Classify_ScopeDetection(t *testing.T) {
	c := New()

	comprehensive := c.Classify("find all controllers that touch billing")
	assert.Equal(t, ScopeComprehensive, comprehensive.Scope)

	focused := c.Classify("how does the PaymentService work")
	assert.Equal(t, ScopeFocused, focused.Scope)

	pinpoint := c.Classify("show me the validate_email method")
	assert.Equal(t, ScopePinpoint, pinpoint.Scope)
}

func TestClassifier_Classify_TargetTypeOverride(t *testing.T) {
	c := New()
	got := c.Classify("where is the User model defined")
	assert.Equal(t, TargetModel, got.TargetType)

	unresolved := c.Classify("why does this fail")
	assert.Equal(t, TargetUnknown, unresolved.TargetType)
}

func TestClassifier_Classify_FrameworkContext(t *testing.T) {
	c := New()
	got := c.Classify("what options does ActiveRecord validation support")
	assert.True(t, got.FrameworkContext)

	plain := c.Classify("where is the checkout flow implemented")
	assert.False(t, plain.FrameworkContext)
}

func TestClassifier_Classify_EntityExtraction(t *testing.T) {
	c := New()
	got := c.Classify(`why does UserController#create_account fail for "admin" users`)
	assert.Contains(t, got.Entities, "UserController")
	assert.Contains(t, got.Entities, "create_account")
	assert.Contains(t, got.Entities, "admin")
}

func TestClassifier_Classify_ConfidencesPopulated(t *testing.T) {
	c := New()
	got := c.Classify("how does the User model work")
	assert.Contains(t, got.Confidences, "intent")
	assert.Contains(t, got.Confidences, "scope")
	assert.Contains(t, got.Confidences, "target_type")
	for _, v := range got.Confidences {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestClassifier_Classify_EmptyQueryNeverPanics(t *testing.T) {
	c := New()
	assert.NotPanics(t, func() {
		got := c.Classify("")
		assert.Equal(t, IntentUnderstand, got.Intent)
		assert.Equal(t, TargetUnknown, got.TargetType)
	})
}
