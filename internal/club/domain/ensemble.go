package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EnsemblePart is the part a member plays in one ensemble piece. It is
// independent of the member's section: a guitarist can sing lead on one song
// and play bass on the next.
type EnsemblePart int

const (
	// PartNone marks a member without an assigned part.
	PartNone EnsemblePart = iota
	// PartVocal is the lead vocal part.
	PartVocal
	// PartLeadGuitar is the lead guitar part.
	PartLeadGuitar
	// PartRhythmGuitar is the rhythm guitar part.
	PartRhythmGuitar
	// PartBass is the bass part.
	PartBass
	// PartDrums is the drum part.
	PartDrums
	// PartKeyboard is the keyboard part.
	PartKeyboard
	// PartSynth is the synthesizer part.
	PartSynth
)

var ensemblePartNames = map[EnsemblePart]string{
	PartNone:         "none",
	PartVocal:        "vocal",
	PartLeadGuitar:   "lead_guitar",
	PartRhythmGuitar: "rhythm_guitar",
	PartBass:         "bass",
	PartDrums:        "drums",
	PartKeyboard:     "keyboard",
	PartSynth:        "synth",
}

// String returns the wire name for an ensemble part.
func (p EnsemblePart) String() string {
	if name, ok := ensemblePartNames[p]; ok {
		return name
	}
	return "none"
}

// EnsemblePartFromString parses a wire name into an EnsemblePart. Unknown and
// empty values map to PartNone rather than failing; a roster entry without a
// recognizable part is still a roster entry.
func EnsemblePartFromString(value string) EnsemblePart {
	value = strings.ToLower(strings.TrimSpace(value))
	for p, name := range ensemblePartNames {
		if name == value {
			return p
		}
	}
	return PartNone
}

const (
	maxEnsembleArtistLen = 100
	maxEnsembleTitleLen  = 100
)

var (
	// ErrEmptyArtist indicates a missing ensemble artist.
	ErrEmptyArtist = errors.New("ensemble artist is required")
	// ErrEmptyEnsembleTitle indicates a missing ensemble title.
	ErrEmptyEnsembleTitle = errors.New("ensemble title is required")
	// ErrEnsembleFieldTooLong indicates an artist or title over the length cap.
	ErrEnsembleFieldTooLong = errors.New("ensemble artist and title are capped at 100 characters")
	// ErrEmptyEnsembleID indicates a member row without an anchoring ensemble.
	ErrEmptyEnsembleID = errors.New("ensemble id is required")
	// ErrAlreadyEnsembleMember indicates a duplicate (ensemble, user) roster entry.
	ErrAlreadyEnsembleMember = errors.New("user is already in this ensemble")
	// ErrNotEnsembleMember indicates a removal without a matching roster entry.
	ErrNotEnsembleMember = errors.New("user is not in this ensemble")
)

// Ensemble is one piece on an event's set list: a song with the roster of
// members playing it.
type Ensemble struct {
	ID        string
	EventID   string
	Artist    string
	Title     string
	Notes     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// EnsembleMember assigns one member to one part of an ensemble piece. At most
// one entry exists per (ensemble, user).
type EnsembleMember struct {
	ID         string
	EnsembleID string
	UserID     string
	Part       EnsemblePart
	CreatedAt  time.Time
}

// CreateEnsembleInput describes the attributes needed to create an ensemble.
type CreateEnsembleInput struct {
	EventID string
	Artist  string
	Title   string
	Notes   string
}

// CreateEnsemble creates an ensemble piece with a generated ID and timestamps.
func CreateEnsemble(input CreateEnsembleInput, now func() time.Time, idGenerator func() (string, error)) (Ensemble, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}

	input.EventID = strings.TrimSpace(input.EventID)
	if input.EventID == "" {
		return Ensemble{}, ErrEmptyEventID
	}
	input.Artist = strings.TrimSpace(input.Artist)
	if input.Artist == "" {
		return Ensemble{}, ErrEmptyArtist
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return Ensemble{}, ErrEmptyEnsembleTitle
	}
	if len(input.Artist) > maxEnsembleArtistLen || len(input.Title) > maxEnsembleTitleLen {
		return Ensemble{}, ErrEnsembleFieldTooLong
	}

	ensembleID, err := idGenerator()
	if err != nil {
		return Ensemble{}, fmt.Errorf("generate ensemble id: %w", err)
	}

	createdAt := now().UTC()
	return Ensemble{
		ID:        ensembleID,
		EventID:   input.EventID,
		Artist:    input.Artist,
		Title:     input.Title,
		Notes:     strings.TrimSpace(input.Notes),
		Active:    true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Version:   1,
	}, nil
}

// CreateEnsembleMember creates a roster entry for one ensemble piece.
func CreateEnsembleMember(ensembleID, userID string, part EnsemblePart, now func() time.Time, idGenerator func() (string, error)) (EnsembleMember, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}
	if ensembleID == "" {
		return EnsembleMember{}, ErrEmptyEnsembleID
	}
	if userID == "" {
		return EnsembleMember{}, ErrEmptyUserID
	}

	memberID, err := idGenerator()
	if err != nil {
		return EnsembleMember{}, fmt.Errorf("generate ensemble member id: %w", err)
	}

	return EnsembleMember{
		ID:         memberID,
		EnsembleID: ensembleID,
		UserID:     userID,
		Part:       part,
		CreatedAt:  now().UTC(),
	}, nil
}

// EnsemblePatch carries optional ensemble fields for a partial update. Nil
// fields are left untouched.
type EnsemblePatch struct {
	Artist *string
	Title  *string
	Notes  *string
	Active *bool
}

// Apply merges non-nil patch fields into the ensemble and validates the result.
func (p EnsemblePatch) Apply(ensemble Ensemble, now func() time.Time) (Ensemble, error) {
	if now == nil {
		now = time.Now
	}
	if p.Artist != nil {
		ensemble.Artist = strings.TrimSpace(*p.Artist)
		if ensemble.Artist == "" {
			return Ensemble{}, ErrEmptyArtist
		}
	}
	if p.Title != nil {
		ensemble.Title = strings.TrimSpace(*p.Title)
		if ensemble.Title == "" {
			return Ensemble{}, ErrEmptyEnsembleTitle
		}
	}
	if len(ensemble.Artist) > maxEnsembleArtistLen || len(ensemble.Title) > maxEnsembleTitleLen {
		return Ensemble{}, ErrEnsembleFieldTooLong
	}
	if p.Notes != nil {
		ensemble.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Active != nil {
		ensemble.Active = *p.Active
	}
	ensemble.UpdatedAt = now().UTC()
	return ensemble, nil
}
