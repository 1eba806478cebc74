package importers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keepsake-app/keepsake/internal/entities"
	"github.com/keepsake-app/keepsake/internal/services"
)

// Resolver maps source-local participant identities to Person ids. One
// Resolver is created per import call and passed through the commit path, so
// the same key never creates two Person rows within a run. Across runs the
// persisted identity key on Person keeps resolution stable.
//
// Resolution is not safe for concurrent use; the orchestrator commits items
// on a single goroutine, which serializes all resolution for a run.
type Resolver struct {
	people services.PersonStore
	userID uint

	index   map[string]uint
	created int
}

func NewResolver(people services.PersonStore, userID uint) *Resolver {
	return &Resolver{
		people: people,
		userID: userID,
		index:  make(map[string]uint),
	}
}

// IdentityKeyFor derives the normalized dedup key for a participant: the
// last 10 phone digits when a number is present, otherwise the lowercased
// trimmed display name or handle.
func IdentityKeyFor(ref ParticipantRef) string {
	if ref.PhoneNumber != "" {
		if phone := NormalizePhone(ref.PhoneNumber); phone != "" {
			return "phone:" + phone
		}
	}
	name := ref.DisplayName
	if name == "" {
		name = ref.Handle
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	return "name:" + name
}

// Resolve returns the Person id for a participant, creating the Person when
// createPeople is set and no match exists. A zero id with nil error means
// the participant is intentionally unlinked (the self ref, an unidentifiable
// ref, or createPeople disabled with no existing match). sourceID records
// which platform first introduced a newly created Person.
func (r *Resolver) Resolve(ref ParticipantRef, createPeople bool, sourceID uint) (uint, error) {
	if ref.IsSelf {
		return 0, nil
	}
	key := IdentityKeyFor(ref)
	if key == "" {
		return 0, nil
	}

	if id, ok := r.index[key]; ok {
		return id, nil
	}

	existing, err := r.people.FindByIdentityKey(r.userID, key)
	if err != nil {
		return 0, fmt.Errorf("look up person %q: %w", key, err)
	}
	if existing != nil {
		r.index[key] = existing.ID
		return existing.ID, nil
	}

	if !createPeople {
		return 0, nil
	}

	person := &entities.Person{
		UserID:      r.userID,
		Name:        participantLabel(ref),
		PhoneNumber: ref.PhoneNumber,
		IdentityKey: key,
		SourceID:    sourceID,
	}
	err = r.people.Create(person)
	switch {
	case errors.Is(err, services.ErrAlreadyExists):
		// A concurrent import inserted this identity first; link to the
		// surviving row without counting a creation.
		r.index[key] = person.ID
		return person.ID, nil
	case err != nil:
		return 0, fmt.Errorf("create person %q: %w", key, err)
	}

	r.index[key] = person.ID
	r.created++
	return person.ID, nil
}

// Created reports how many Person rows this resolver inserted.
func (r *Resolver) Created() int {
	return r.created
}
