package providers

import (
	"fmt"

	"github.com/gookit/validate"

	"mtad/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate applies the struct tag rules, then the cross-field checks the tag
// language cannot express.
func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}

	attr := cv.conf.Attribution
	if attr.HalfLifeDays < 0 {
		return fmt.Errorf("invalid config: attribution.halfLifeDays must be >= 0")
	}
	if attr.Retention > 0 && attr.ColdDir == "" {
		return fmt.Errorf("invalid config: attribution.coldDir is required when retention is set")
	}
	if attr.Retention > 0 && attr.EvictionInterval <= 0 {
		return fmt.Errorf("invalid config: attribution.evictionInterval is required when retention is set")
	}
	if cv.conf.Cache.Enabled && cv.conf.Cache.TTL <= 0 {
		return fmt.Errorf("invalid config: cache.ttl must be > 0 when cache is enabled")
	}
	return nil
}
