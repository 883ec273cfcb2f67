package iris

import (
	"bytes"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"

	"vulcancal/internal/model"
)

type Pupil struct {
	ID        int    `json:"Id"`
	FirstName string `json:"FirstName"`
	Surname   string `json:"Surname"`
}

type Unit struct {
	ID      int    `json:"Id"`
	Short   string `json:"Short"`
	RestURL string `json:"RestURL"`
	Name    string `json:"Name"`
}

type Period struct {
	ID       *int       `json:"Id"`
	DateFrom civil.Date `json:"-"`
	DateTo   civil.Date `json:"-"`
	Current  bool       `json:"Current"`
}

func (p *Period) UnmarshalJSON(b []byte) error {
	type plain Period
	var aux struct {
		plain
		DateFrom json.RawMessage `json:"DateFrom"`
		DateTo   json.RawMessage `json:"DateTo"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Period(aux.plain)
	var err error
	if p.DateFrom, err = decodeDay(aux.DateFrom); err != nil {
		return fmt.Errorf("period DateFrom: %w", err)
	}
	if p.DateTo, err = decodeDay(aux.DateTo); err != nil {
		return fmt.Errorf("period DateTo: %w", err)
	}
	return nil
}

// Account is one pupil registration returned by mobile/register/hebe.
type Account struct {
	Pupil   Pupil    `json:"Pupil"`
	Unit    Unit     `json:"Unit"`
	Periods []Period `json:"Periods"`
}

// Info flattens the account for event descriptions. An empty unit REST
// URL falls back to fallback.
func (a Account) Info(fallback string) model.AccountInfo {
	rest := a.Unit.RestURL
	if rest == "" {
		rest = fallback
	}
	return model.AccountInfo{
		PupilID:   a.Pupil.ID,
		PupilName: a.Pupil.FirstName + " " + a.Pupil.Surname,
		UnitName:  a.Unit.Name,
		UnitShort: a.Unit.Short,
		RestURL:   rest,
	}
}

// Vacation is a school break from mobile/school/vacation.
type Vacation struct {
	ID       int        `json:"Id"`
	Name     string     `json:"Name"`
	DateFrom civil.Date `json:"-"`
	DateTo   civil.Date `json:"-"`
}

func (v *Vacation) UnmarshalJSON(b []byte) error {
	type plain Vacation
	var aux struct {
		plain
		DateFrom json.RawMessage `json:"DateFrom"`
		DateTo   json.RawMessage `json:"DateTo"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*v = Vacation(aux.plain)
	var err error
	if v.DateFrom, err = decodeDay(aux.DateFrom); err != nil {
		return fmt.Errorf("vacation DateFrom: %w", err)
	}
	if v.DateTo, err = decodeDay(aux.DateTo); err != nil {
		return fmt.Errorf("vacation DateTo: %w", err)
	}
	return nil
}

// decodeDay accepts "2024-10-14" or the upstream date envelope
// {"Date": "2024-10-14", "DateDisplay": "14.10.2024", ...}.
func decodeDay(raw json.RawMessage) (civil.Date, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return civil.Date{}, fmt.Errorf("missing date")
	}
	if raw[0] == '{' {
		var env struct {
			Date civil.Date `json:"Date"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return civil.Date{}, err
		}
		return env.Date, nil
	}
	var d civil.Date
	if err := json.Unmarshal(raw, &d); err != nil {
		return civil.Date{}, err
	}
	return d, nil
}
