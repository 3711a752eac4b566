package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var wavelengthKey = regexp.MustCompile(`^(R0_|Fernald_Sp|AlignCorr_)(\d+)$`)

// Set overwrites a single field by its legacy key name. Per-wavelength keys
// take the form R0_<wl>, Fernald_Sp<wl> and AlignCorr_<wl>; a wavelength
// not yet present starts from FallbackWavelength. Set does not validate the
// result, so several keys may be changed before calling Validate.
func (c *AnalysisConfig) Set(key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if m := wavelengthKey.FindStringSubmatch(key); m != nil {
		wl, err := strconv.Atoi(m[2])
		if err != nil {
			return fmt.Errorf("%w: wavelength in %q: %v", ErrInvalid, key, err)
		}
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		p := c.ForWavelength(wl)
		switch m[1] {
		case "R0_":
			p.R0 = v
		case "Fernald_Sp":
			p.LidarRatio = v
		case "AlignCorr_":
			p.AlignCorr = v
		}
		c.SetWavelength(wl, p)
		return nil
	}

	var err error
	switch key {
	case "LidarAltitude":
		c.LidarAltitude, err = parseFloat(key, value)
	case "LidarTheta", "LidarTeta":
		c.LidarTheta, err = parseFloat(key, value)
	case "QualityThr":
		c.QualityThr, err = parseFloat(key, value)
	case "AltMin":
		c.AltMin, err = parseFloat(key, value)
	case "AltMax":
		c.AltMax, err = parseFloat(key, value)
	case "BkgMin":
		c.BkgMin, err = parseFloat(key, value)
	case "BkgMax":
		c.BkgMax, err = parseFloat(key, value)
	case "BkgFudgeFactor":
		c.BkgFudgeFactor, err = parseFloat(key, value)
	case "NBins":
		c.NBins, err = parseInt(key, value)
	case "LogBins":
		c.LogBins, err = parseBool(key, value)
	case "SGFilter":
		c.SGFilter, err = parseBool(key, value)
	case "AlgName":
		c.AlgName = Algorithm(value)
	case "Klett_k":
		c.KlettK, err = parseFloat(key, value)
	case "Klett_l":
		c.KlettL, err = parseFloat(key, value)
	case "Fernald_sratio":
		c.FernaldSRatio, err = parseFloat(key, value)
	case "TauAltMin":
		c.TauAltMin, err = parseFloat(key, value)
	case "TauAltMax":
		c.TauAltMax, err = parseFloat(key, value)
	case "SNRatioThreshold":
		c.SNRatioThreshold, err = parseFloat(key, value)
	case "OptimizeR0":
		c.OptimizeR0, err = parseBool(key, value)
	case "OptimizeAC":
		c.OptimizeAC, err = parseBool(key, value)
	case "OptimizeAC_Hmin":
		c.OptimizeACHmin, err = parseFloat(key, value)
	case "AtmoAbsorption":
		c.AtmoAbsorption = value
	case "AtmoProfile":
		c.AtmoProfile = value
	case "OverlapFunction":
		c.OverlapFunction = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return err
}

// Params renders the configuration as the flat legacy key map, including
// one R0_/Fernald_Sp/AlignCorr_ triple per configured wavelength.
func (c *AnalysisConfig) Params() map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	b := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}

	out := map[string]string{
		"LidarAltitude":    f(c.LidarAltitude),
		"LidarTheta":       f(c.LidarTheta),
		"QualityThr":       f(c.QualityThr),
		"AltMin":           f(c.AltMin),
		"AltMax":           f(c.AltMax),
		"BkgMin":           f(c.BkgMin),
		"BkgMax":           f(c.BkgMax),
		"BkgFudgeFactor":   f(c.BkgFudgeFactor),
		"NBins":            strconv.Itoa(c.NBins),
		"LogBins":          b(c.LogBins),
		"SGFilter":         b(c.SGFilter),
		"AlgName":          string(c.AlgName),
		"Klett_k":          f(c.KlettK),
		"Klett_l":          f(c.KlettL),
		"Fernald_sratio":   f(c.FernaldSRatio),
		"TauAltMin":        f(c.TauAltMin),
		"TauAltMax":        f(c.TauAltMax),
		"SNRatioThreshold": f(c.SNRatioThreshold),
		"OptimizeR0":       b(c.OptimizeR0),
		"OptimizeAC":       b(c.OptimizeAC),
		"OptimizeAC_Hmin":  f(c.OptimizeACHmin),
		"AtmoAbsorption":   c.AtmoAbsorption,
		"AtmoProfile":      c.AtmoProfile,
		"OverlapFunction":  c.OverlapFunction,
	}
	for wl, p := range c.Wavelengths {
		out[fmt.Sprintf("R0_%d", wl)] = f(p.R0)
		out[fmt.Sprintf("Fernald_Sp%d", wl)] = f(p.LidarRatio)
		out[fmt.Sprintf("AlignCorr_%d", wl)] = f(p.AlignCorr)
	}
	return out
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, key, value)
	}
	return v, nil
}

func parseInt(key, value string) (int, error) {
	if v, err := strconv.Atoi(value); err == nil {
		return v, nil
	}
	// Accept "100." as written by older configuration files.
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, value)
	}
	return int(f), nil
}

// parseBool accepts strconv.ParseBool spellings and any number, which is
// true when positive.
func parseBool(key, value string) (bool, error) {
	if v, err := strconv.ParseBool(value); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, key, value)
	}
	return f > 0, nil
}
