package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
)

func TestProfileValidate(t *testing.T) {
	today := eligibility.Date(2026, time.October, 18)
	valid := func() Profile {
		return Profile{
			DonorID:   id.DonorID(uuid.New()),
			BirthDate: eligibility.Date(2000, time.January, 1),
			Sex:       eligibility.Female,
		}
	}

	t.Run("accepts a complete profile", func(t *testing.T) {
		p := valid()
		assert.NoError(t, p.Validate(today))
	})

	t.Run("accepts a birth date exactly 16 years back", func(t *testing.T) {
		p := valid()
		p.BirthDate = eligibility.Date(2010, time.October, 18)
		assert.NoError(t, p.Validate(today))
	})

	cases := map[string]func(p *Profile){
		"too young":       func(p *Profile) { p.BirthDate = eligibility.Date(2010, time.October, 19) },
		"future birth":    func(p *Profile) { p.BirthDate = eligibility.Date(2030, time.January, 1) },
		"missing sex":     func(p *Profile) { p.Sex = "" },
		"unknown sex":     func(p *Profile) { p.Sex = "other" },
		"missing donor":   func(p *Profile) { p.DonorID = id.DonorID{} },
		"timestamp birth": func(p *Profile) { p.BirthDate = p.BirthDate.Add(time.Hour) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid()
			mutate(&p)
			err := p.Validate(today)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}
