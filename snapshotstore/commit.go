package snapshotstore

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

const maxMinorCommitID = 99

// CommitID identifies a commit. Major ids grow monotonically, the minor part allows several
// author-scoped commits to share one major id. The decimal form is major + minor/100.
type CommitID struct {
	Major uint64
	Minor uint8
}

// NewCommitID builds a CommitID, the minor part must be within 0..99.
func NewCommitID(major uint64, minor uint8) (CommitID, error) {
	if major == 0 || minor > maxMinorCommitID {
		return CommitID{}, errors.Join(ErrInvalidQuery, ErrInvalidCommitID)
	}

	return CommitID{Major: major, Minor: minor}, nil
}

// CommitIDFromNumber converts the decimal representation stored in the commit table back into a CommitID.
func CommitIDFromNumber(number float64) (CommitID, error) {
	if number < 1 || math.IsNaN(number) || math.IsInf(number, 0) {
		return CommitID{}, ErrInvalidCommitID
	}

	major := math.Floor(number)
	minor := math.Round((number - major) * 100)

	if minor > maxMinorCommitID {
		major++
		minor = 0
	}

	return CommitID{Major: uint64(major), Minor: uint8(minor)}, nil
}

// ParseCommitID parses the "major.minor" form, e.g. "12.01" or "12".
func ParseCommitID(value string) (CommitID, error) {
	majorPart, minorPart, hasMinor := strings.Cut(value, ".")

	major, err := strconv.ParseUint(majorPart, 10, 64)
	if err != nil {
		return CommitID{}, errors.Join(ErrInvalidQuery, ErrInvalidCommitID, err)
	}

	minor := uint64(0)
	if hasMinor {
		minor, err = strconv.ParseUint(minorPart, 10, 8)
		if err != nil {
			return CommitID{}, errors.Join(ErrInvalidQuery, ErrInvalidCommitID, err)
		}
	}

	if minor > maxMinorCommitID {
		return CommitID{}, errors.Join(ErrInvalidQuery, ErrInvalidCommitID)
	}

	return NewCommitID(major, uint8(minor))
}

// IsZero reports whether the id is unset.
func (id CommitID) IsZero() bool {
	return id.Major == 0 && id.Minor == 0
}

// Number returns the decimal representation used for storage and comparisons.
func (id CommitID) Number() float64 {
	return float64(id.Major) + float64(id.Minor)/100
}

// Compare orders commit ids, it returns -1, 0 or +1.
func (id CommitID) Compare(other CommitID) int {
	switch {
	case id.Major < other.Major:
		return -1
	case id.Major > other.Major:
		return 1
	case id.Minor < other.Minor:
		return -1
	case id.Minor > other.Minor:
		return 1
	default:
		return 0
	}
}

func (id CommitID) String() string {
	return fmt.Sprintf("%d.%02d", id.Major, id.Minor)
}

// CommitProperty is a (name, value) pair attached to a commit.
type CommitProperty struct {
	Name  string
	Value string
}

// CP is a short factory for CommitProperty.
func CP(name string, value string) CommitProperty {
	return CommitProperty{Name: name, Value: value}
}

// CommitMetadata describes the commit a snapshot was recorded in.
type CommitMetadata struct {
	ID                CommitID
	Author            string
	Properties        []CommitProperty
	CommitDate        time.Time // local commit date
	CommitDateInstant time.Time
}

// Property returns the value of the named commit property.
func (cm CommitMetadata) Property(name string) (string, bool) {
	for _, p := range cm.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}

	return "", false
}

// sortCommitProperties orders by name, then value, and removes exact duplicates.
func sortCommitProperties(properties []CommitProperty) []CommitProperty {
	slices.SortFunc(properties, func(a, b CommitProperty) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}

		return strings.Compare(a.Value, b.Value)
	})

	return slices.Compact(properties)
}
