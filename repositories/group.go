//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/javascriptisbest/pbl4-sub001/errors"
)

// IGroupRepository is the group membership resolver consumed by the router,
// plus the management surface used by the HTTP API.
type IGroupRepository interface {
	CreateGroup(name string, members []string) (Group, error)
	AddMember(groupID, userID string) error
	Members(groupID string) ([]string, error)
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

type GroupRepository struct {
	db *badger.DB
}

func NewGroupRepository(db *badger.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func groupKey(groupID string) []byte {
	return []byte("group:" + groupID)
}

func (g *GroupRepository) CreateGroup(name string, members []string) (Group, error) {
	group := Group{
		ID:        uuid.New().String(),
		Name:      name,
		Members:   lo.Uniq(members),
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(group)
	if err != nil {
		return Group{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(group.ID), data)
	})
	if err != nil {
		return Group{}, err
	}
	return group, nil
}

// AddMember is a read-modify-write inside one Badger transaction, so
// concurrent joins of the same group cannot lose members.
func (g *GroupRepository) AddMember(groupID, userID string) error {
	return g.db.Update(func(txn *badger.Txn) error {
		group, err := readGroup(txn, groupID)
		if err != nil {
			return err
		}
		if lo.Contains(group.Members, userID) {
			return nil
		}
		group.Members = append(group.Members, userID)
		data, err := json.Marshal(group)
		if err != nil {
			return err
		}
		return txn.Set(groupKey(groupID), data)
	})
}

// Members returns the current member identities of a group.
func (g *GroupRepository) Members(groupID string) ([]string, error) {
	var members []string
	err := g.db.View(func(txn *badger.Txn) error {
		group, err := readGroup(txn, groupID)
		if err != nil {
			return err
		}
		members = group.Members
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func readGroup(txn *badger.Txn, groupID string) (Group, error) {
	var group Group
	item, err := txn.Get(groupKey(groupID))
	if err == badger.ErrKeyNotFound {
		return Group{}, fmt.Errorf("%w: %s", errors.ErrUnknownGroup, groupID)
	}
	if err != nil {
		return Group{}, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &group)
	})
	return group, err
}
