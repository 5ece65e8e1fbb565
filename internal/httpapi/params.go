package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"QuantDash/internal/model"
	"QuantDash/internal/service"
)

// paramError reports a malformed query parameter.
type paramError struct {
	name  string
	value string
	want  string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected %s", e.name, e.value, e.want)
}

// first returns the first non-empty value among the given parameter names.
func first(q url.Values, names ...string) (string, string) {
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return n, v
		}
	}
	return names[0], ""
}

func parseRange(q url.Values) (service.Range, error) {
	var r service.Range
	var err error
	if r.Start, err = parseDate(q, "start", "start_date"); err != nil {
		return r, err
	}
	if r.End, err = parseDate(q, "end", "end_date"); err != nil {
		return r, err
	}
	return r, nil
}

func parseDate(q url.Values, names ...string) (time.Time, error) {
	name, v := first(q, names...)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, &paramError{name: name, value: v, want: "a date in YYYY-MM-DD format"}
	}
	return t, nil
}

// intParam returns def when the parameter is absent.
func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &paramError{name: name, value: v, want: "an integer"}
	}
	return n, nil
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &paramError{name: name, value: v, want: "a number"}
	}
	return f, nil
}

func parseSMA(q url.Values) (service.SMAParams, error) {
	p := service.DefaultSMAParams()
	var err error
	p.Window, err = intParam(q, "window", p.Window)
	return p, err
}

func parseBands(q url.Values) (service.BandsParams, error) {
	p := service.DefaultBandsParams()
	var err error
	if p.Window, err = intParam(q, "window", p.Window); err != nil {
		return p, err
	}
	p.NumStd, err = floatParam(q, "num_std", p.NumStd)
	return p, err
}

func parseMACD(q url.Values) (service.MACDParams, error) {
	p := service.DefaultMACDParams()
	var err error
	if p.Fast, err = intParam(q, "fast", p.Fast); err != nil {
		return p, err
	}
	if p.Slow, err = intParam(q, "slow", p.Slow); err != nil {
		return p, err
	}
	p.Signal, err = intParam(q, "signal", p.Signal)
	return p, err
}

func parseRSI(q url.Values) (service.RSIParams, error) {
	p := service.DefaultRSIParams()
	var err error
	p.Window, err = intParam(q, "window", p.Window)
	return p, err
}
