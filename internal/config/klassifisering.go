package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ClassCodeMapping binds a benefit type under one legal regime to the class
// code the disbursement system books it on.
type ClassCodeMapping struct {
	BenefitType string `mapstructure:"benefitType"`
	Regime      string `mapstructure:"regime"`
	ClassCode   string `mapstructure:"classCode"`
}

type ClassCodeConfig struct {
	Mappings []ClassCodeMapping `mapstructure:"mappings"`
}

func DefaultClassCodeConfig() ClassCodeConfig {
	return ClassCodeConfig{
		Mappings: []ClassCodeMapping{
			{BenefitType: "BARNEPENSJON", Regime: "BP_TOM_2023", ClassCode: "BARNEPEFOER2024"},
			{BenefitType: "BARNEPENSJON", Regime: "BP_FOM_2024", ClassCode: "BARNEPENSJON-OPTP"},
			{BenefitType: "OMSTILLINGSSTOENAD", Regime: "OMS", ClassCode: "OMSTILLINGOR"},
		},
	}
}

type ClassCodeConfigHolder struct {
	current atomic.Value // holds ClassCodeConfig
}

// NewStaticClassCodeConfigHolder returns a holder that never reloads.
func NewStaticClassCodeConfigHolder(cfg ClassCodeConfig) *ClassCodeConfigHolder {
	holder := &ClassCodeConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewClassCodeConfigHolder() (*ClassCodeConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("klassifisering")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/okonomi/config")
	v.AddConfigPath("/etc/okonomi")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OKONOMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg := DefaultClassCodeConfig()
	if fileFound {
		if err := v.UnmarshalKey("klassifisering", &cfg); err != nil {
			return nil, err
		}
	}
	if err := validateClassCodeConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticClassCodeConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ClassCodeConfig
		if err := v.UnmarshalKey("klassifisering", &updated); err != nil {
			log.Printf("[klassifisering] reload failed: %v", err)
			return
		}
		if err := validateClassCodeConfig(updated); err != nil {
			log.Printf("[klassifisering] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[klassifisering] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ClassCodeConfigHolder) Get() ClassCodeConfig {
	return h.current.Load().(ClassCodeConfig)
}

// Lookup returns the class code for a benefit type under a regime.
func (h *ClassCodeConfigHolder) Lookup(benefitType, regime string) (string, bool) {
	if h == nil {
		return "", false
	}
	for _, m := range h.Get().Mappings {
		if m.BenefitType == benefitType && m.Regime == regime {
			return m.ClassCode, true
		}
	}
	return "", false
}

func validateClassCodeConfig(cfg ClassCodeConfig) error {
	if len(cfg.Mappings) == 0 {
		return errors.New("klassifisering.mappings cannot be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Mappings))
	for _, m := range cfg.Mappings {
		if strings.TrimSpace(m.BenefitType) == "" || strings.TrimSpace(m.Regime) == "" || strings.TrimSpace(m.ClassCode) == "" {
			return errors.New("klassifisering.mappings entries need benefitType, regime and classCode")
		}
		key := m.BenefitType + "|" + m.Regime
		if _, dup := seen[key]; dup {
			return fmt.Errorf("klassifisering.mappings has duplicate entry for %s/%s", m.BenefitType, m.Regime)
		}
		seen[key] = struct{}{}
	}
	return nil
}
