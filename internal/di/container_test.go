package di

import (
	"context"
	"testing"

	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/mikey/llm-email-classifier/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phishingMessage = "From: Security Team <alerts@bank.example>\r\n" +
	"To: customer@example.org\r\n" +
	"Subject: Your account is suspended\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Click here to verify account details.\r\n"

func TestCLIContainerClassifiesWithRules(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Provider: "rules", Concurrency: 2})
	require.NoError(t, err)

	err = container.Invoke(func(svc *core.ClassificationService, cfg *config.Config) {
		assert.Equal(t, "memory", cfg.GetString("cache.type"))
		assert.Equal(t, "keyword-rules", svc.ModelID())

		result := svc.Classify(context.Background(), []byte(phishingMessage), "alert.eml")
		assert.Empty(t, result.Error)
		assert.Equal(t, "phishing", result.Label)
		assert.Equal(t, "Your account is suspended", result.Subject)

		again := svc.Classify(context.Background(), []byte(phishingMessage), "copy.eml")
		assert.Equal(t, "copy.eml", again.FileName)
		assert.Equal(t, 1, svc.Stats(context.Background()).CacheHits)
	})
	require.NoError(t, err)
}

func TestCLIContainerReportsMalformedInput(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Provider: "rules"})
	require.NoError(t, err)

	err = container.Invoke(func(svc *core.ClassificationService) {
		truncated := svc.Classify(context.Background(), []byte("Subject: Hello\r\nFrom: a@b"), "cut.eml")
		assert.Contains(t, truncated.Error, "Failed to parse email")
		assert.Empty(t, truncated.Label)

		bogus := svc.Classify(context.Background(),
			[]byte("Subject: x\r\nContent-Transfer-Encoding: x-bogus\r\n\r\nbody\r\n"), "bogus.eml")
		assert.Contains(t, bogus.Error, "x-bogus")
	})
	require.NoError(t, err)
}

func TestCLIContainerRejectsUnknownProvider(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Provider: "telepathy"})
	require.NoError(t, err)

	err = container.Invoke(func(*core.ClassificationService) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider: telepathy")
}

func TestApplyFlags(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	applyFlags(cfg, &CLIFlags{
		Provider: "gemini",
		Model:    "gemini-1.5-pro",
		Labels:   []string{"spam", "benign"},
	})

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.GetGemini().ModelName)
	assert.Equal(t, []string{"spam", "benign"}, cfg.GetStringSlice("classifier.labels"))
	assert.Equal(t, 1, cfg.GetInt("classifier.batch_concurrency"))
}

func TestServiceContainerBuildsIntakes(t *testing.T) {
	t.Setenv("EMAIL_CLASSIFIER_LLM_PROVIDER", "rules")
	t.Setenv("EMAIL_CLASSIFIER_SMTP_ENABLED", "true")

	container, err := BuildContainer("")
	require.NoError(t, err)

	err = container.Invoke(func(intakes []ports.Intake) {
		assert.Len(t, intakes, 2)
	})
	require.NoError(t, err)
}
