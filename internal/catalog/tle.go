package catalog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/AntAci/AstraGuard/internal/orbit"
)

// tleLineLength is the fixed record length of a TLE line.
const tleLineLength = 69

// ParseTLE decodes a two-line element set into an Object. The caller fills
// in SourceGroup, Class, and FetchedAt. Both lines are checksum-verified.
func ParseTLE(name, line1, line2 string) (Object, error) {
	if err := verifyTLELine(line1, '1'); err != nil {
		return Object{}, fmt.Errorf("line 1: %w", err)
	}
	if err := verifyTLELine(line2, '2'); err != nil {
		return Object{}, fmt.Errorf("line 2: %w", err)
	}

	noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return Object{}, fmt.Errorf("catalog number %q: %w", line1[2:7], err)
	}
	id2, err := strconv.Atoi(strings.TrimSpace(line2[2:7]))
	if err != nil || id2 != noradID {
		return Object{}, fmt.Errorf("line 2 catalog number %q does not match line 1", line2[2:7])
	}

	epoch, err := parseTLEEpoch(line1[18:32])
	if err != nil {
		return Object{}, fmt.Errorf("epoch %q: %w", line1[18:32], err)
	}
	bstar, err := parseImpliedDecimal(line1[53:61])
	if err != nil {
		return Object{}, fmt.Errorf("bstar %q: %w", line1[53:61], err)
	}

	incl, err := tleFloat(line2[8:16])
	if err != nil {
		return Object{}, fmt.Errorf("inclination: %w", err)
	}
	raan, err := tleFloat(line2[17:25])
	if err != nil {
		return Object{}, fmt.Errorf("raan: %w", err)
	}
	ecc, err := tleFloat("0." + strings.TrimSpace(line2[26:33]))
	if err != nil {
		return Object{}, fmt.Errorf("eccentricity: %w", err)
	}
	argp, err := tleFloat(line2[34:42])
	if err != nil {
		return Object{}, fmt.Errorf("argument of perigee: %w", err)
	}
	meanAnom, err := tleFloat(line2[43:51])
	if err != nil {
		return Object{}, fmt.Errorf("mean anomaly: %w", err)
	}
	meanMotionRevDay, err := tleFloat(line2[52:63])
	if err != nil {
		return Object{}, fmt.Errorf("mean motion: %w", err)
	}

	deg := math.Pi / 180
	el := orbit.Elements{
		Epoch:        epoch,
		Inclination:  incl * deg,
		RAAN:         raan * deg,
		Eccentricity: ecc,
		ArgPerigee:   argp * deg,
		MeanAnomaly:  meanAnom * deg,
		MeanMotion:   meanMotionRevDay * 2 * math.Pi / 86400,
		BStar:        bstar,
	}
	if err := el.Validate(); err != nil {
		return Object{}, fmt.Errorf("object %d: %w", noradID, err)
	}

	return Object{
		NoradID:  noradID,
		Name:     strings.TrimSpace(name),
		Epoch:    epoch,
		Elements: el,
	}, nil
}

// ParseGroup reads a stream of element sets in the usual catalog export
// layout: an optional name line followed by the two data lines. Malformed
// sets abort the parse; group files are machine-generated and a bad record
// means the fetch is corrupt.
func ParseGroup(r io.Reader, sourceGroup string, fetchedAt time.Time) ([]Object, error) {
	scanner := bufio.NewScanner(r)
	class := ClassifyGroup(sourceGroup)

	var objects []Object
	var name string
	var line1 string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "1 "):
			line1 = line
		case strings.HasPrefix(line, "2 "):
			if line1 == "" {
				return nil, fmt.Errorf("record %d: line 2 without line 1", len(objects)+1)
			}
			obj, err := ParseTLE(name, line1, line)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", len(objects)+1, err)
			}
			obj.SourceGroup = sourceGroup
			obj.Class = class
			obj.FetchedAt = fetchedAt
			objects = append(objects, obj)
			name, line1 = "", ""
		default:
			name = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return objects, nil
}

// verifyTLELine checks record length, the line-number column, and the mod-10
// checksum (digits count their value, minus signs count one).
func verifyTLELine(line string, want byte) error {
	if len(line) < tleLineLength {
		return fmt.Errorf("short line: %d chars", len(line))
	}
	if line[0] != want {
		return fmt.Errorf("expected line %c, got %c", want, line[0])
	}
	sum := 0
	for _, c := range line[:tleLineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	if byte(sum%10)+'0' != line[tleLineLength-1] {
		return fmt.Errorf("checksum mismatch: computed %d, recorded %c", sum%10, line[tleLineLength-1])
	}
	return nil
}

// parseTLEEpoch decodes the yyDDD.dddddddd epoch field. Two-digit years
// below 57 are 2000s, the rest 1900s.
func parseTLEEpoch(field string) (time.Time, error) {
	yy, err := strconv.Atoi(strings.TrimSpace(field[:2]))
	if err != nil {
		return time.Time{}, err
	}
	year := 1900 + yy
	if yy < 57 {
		year = 2000 + yy
	}
	dayOfYear, err := strconv.ParseFloat(strings.TrimSpace(field[2:]), 64)
	if err != nil {
		return time.Time{}, err
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("day of year %v out of range", dayOfYear)
	}
	jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	seconds := (dayOfYear - 1) * 86400
	return jan1.Add(time.Duration(seconds * float64(time.Second))), nil
}

// parseImpliedDecimal decodes the TLE exponent notation used for BStar:
// " 12345-4" means 0.12345e-4, with an optional leading sign.
func parseImpliedDecimal(field string) (float64, error) {
	s := strings.TrimSpace(field)
	if s == "" {
		return 0, nil
	}
	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("malformed implied-decimal field %q", field)
	}
	expPart := s[len(s)-2:]
	mantPart := s[:len(s)-2]
	mantissa, err := strconv.ParseFloat("0."+mantPart, 64)
	if err != nil {
		return 0, fmt.Errorf("mantissa %q: %w", mantPart, err)
	}
	exp, err := strconv.Atoi(strings.ReplaceAll(expPart, "+", ""))
	if err != nil {
		return 0, fmt.Errorf("exponent %q: %w", expPart, err)
	}
	return sign * mantissa * math.Pow(10, float64(exp)), nil
}

func tleFloat(field string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(field), 64)
}
