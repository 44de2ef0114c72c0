package factory

import (
	"github.com/mikey/llm-email-classifier/internal/adapters/api"
	"github.com/mikey/llm-email-classifier/internal/adapters/smtpd"
	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/mikey/llm-email-classifier/internal/ports"
	"github.com/mikey/llm-email-classifier/internal/whitelist"
	"go.uber.org/zap"
)

// IntakeFactory creates the front ends that feed the classification service
type IntakeFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ClassificationService
}

// NewIntakeFactory creates a new intake factory
func NewIntakeFactory(cfg *config.Config, logger *zap.Logger, service *core.ClassificationService) *IntakeFactory {
	return &IntakeFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateIntakes returns the HTTP API followed by the SMTP listener when
// smtp.enabled is set.
func (f *IntakeFactory) CreateIntakes() ([]ports.Intake, error) {
	classifierCfg, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, err
	}

	intakes := []ports.Intake{
		api.NewServer(f.service, f.cfg.GetServer(), api.Options{
			RequestTimeout: classifierCfg.RequestTimeout,
			Provider:       f.cfg.GetLLM().Provider,
		}, f.logger.Named("api")),
	}

	smtpCfg := f.cfg.GetSMTP()
	if !smtpCfg.Enabled {
		return intakes, nil
	}

	logger := f.logger.Named("smtp")
	var relay smtpd.Deliverer
	if smtpCfg.ForwardEnabled {
		relay = smtpd.NewRelay(smtpCfg.ForwardAddress, smtpCfg.ForwardPort, logger)
	}
	trusted := whitelist.NewChecker(smtpCfg.TrustedDomains, logger)

	intakes = append(intakes, smtpd.NewServer(f.service, smtpCfg, classifierCfg.RequestTimeout, trusted, relay, logger))
	return intakes, nil
}
