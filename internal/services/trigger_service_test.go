package services

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

// Trigger creation rejects workflow and account ids that do not exist in the tenant.
func TestProperty_TriggerReferencesMustExist(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	env, cleanup := newTestEnv(t)
	defer cleanup()
	wf := env.workflow(t, "onboarding")
	account := env.connect(t, "ops@acme.com")

	properties.Property("unknown_references_are_rejected", prop.ForAll(
		func(offset uint, breakWorkflow bool) bool {
			input := TriggerInput{
				Name:              "ref check",
				TriggerType:       models.TriggerEventCreated,
				WorkflowID:        wf.ID,
				CalendarAccountID: account.ID,
			}
			if breakWorkflow {
				input.WorkflowID = wf.ID + offset
			} else {
				input.CalendarAccountID = account.ID + offset
			}
			_, err := env.triggers.CreateTrigger(testTenant, input)
			if breakWorkflow {
				return errors.Is(err, ErrWorkflowNotFound)
			}
			return errors.Is(err, ErrAccountNotFound)
		},
		gen.UIntRange(1, 1000),
		gen.Bool(),
	))

	properties.Property("references_of_another_tenant_are_rejected", prop.ForAll(
		func(tenant string) bool {
			_, err := env.triggers.CreateTrigger("other-"+tenant, TriggerInput{
				Name:              "cross tenant",
				TriggerType:       models.TriggerEventCreated,
				WorkflowID:        wf.ID,
				CalendarAccountID: account.ID,
			})
			return errors.Is(err, ErrWorkflowNotFound)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestValidateTriggerInput(t *testing.T) {
	valid := TriggerInput{Name: "kickoffs", TriggerType: models.TriggerEventCreated}
	require.NoError(t, ValidateTriggerInput(valid))

	cases := map[string]func(*TriggerInput){
		"missing name":       func(in *TriggerInput) { in.Name = " " },
		"unknown type":       func(in *TriggerInput) { in.TriggerType = "event_moved" },
		"unknown match type": func(in *TriggerInput) { in.TitleRules = []models.MatchRule{{Type: "fuzzy", Value: "x"}} },
		"bad regex":          func(in *TriggerInput) { in.DescriptionRules = []models.MatchRule{{Type: models.MatchRegex, Value: "(["}} },
		"negative window":    func(in *TriggerInput) { in.MinutesBeforeStart = intPtr(-5) },
		"bad custom field": func(in *TriggerInput) {
			in.DataExtraction.CustomFields = []models.CustomField{{Name: "x", Source: "title", ExtractionType: "between_strings", Pattern: "no delimiter"}}
		},
		"duplicate custom field": func(in *TriggerInput) {
			field := models.CustomField{Name: "code", Source: "title", ExtractionType: "after_string", Pattern: "#"}
			in.DataExtraction.CustomFields = []models.CustomField{field, field}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			assert.True(t, errors.Is(ValidateTriggerInput(in), ErrInvalidTriggerData))
		})
	}
}

func TestTriggerLifecycle(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	wf := env.workflow(t, "onboarding")
	account := env.connect(t, "ops@acme.com")
	trigger := env.trigger(t, wf, account, TriggerInput{
		Name:        "kickoffs",
		TriggerType: models.TriggerEventCreated,
		TitleRules:  []models.MatchRule{{Type: models.MatchContains, Value: "kickoff"}},
	})
	assert.True(t, trigger.IsActive)
	assert.Equal(t, models.DefaultMinutesBeforeStart, trigger.StartWindow())

	got, err := env.triggers.GetTrigger(testTenant, trigger.ID)
	require.NoError(t, err)
	require.Len(t, got.TitleRules, 1)
	assert.Equal(t, "kickoff", got.TitleRules[0].Value)
	assert.NotNil(t, got.Calendars)

	updated, err := env.triggers.UpdateTrigger(testTenant, trigger.ID, TriggerInput{
		Name:               "kickoffs soon",
		TriggerType:        models.TriggerEventStartsSoon,
		WorkflowID:         wf.ID,
		CalendarAccountID:  account.ID,
		MinutesBeforeStart: intPtr(30),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.StartWindow())

	_, err = env.triggers.SetTriggerActive(testTenant, trigger.ID, false)
	require.NoError(t, err)
	active, err := env.triggers.ActiveTriggersForAccount(account.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, env.triggers.RecordFire(trigger.ID, at))
	require.NoError(t, env.triggers.RecordFire(trigger.ID, at.Add(time.Minute)))
	got, err = env.triggers.GetTrigger(testTenant, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TriggerCount)
	require.NotNil(t, got.LastTriggered)
	assert.True(t, got.LastTriggered.Equal(at.Add(time.Minute)))

	list, err := env.triggers.ListTriggers(testTenant, account.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.triggers.DeleteTrigger(testTenant, trigger.ID))
	_, err = env.triggers.GetTrigger(testTenant, trigger.ID)
	assert.True(t, errors.Is(err, ErrTriggerNotFound))
}
