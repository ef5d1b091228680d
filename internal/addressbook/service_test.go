package addressbook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huonghan/storefront/internal/apperror"
	"github.com/huonghan/storefront/internal/identity"
	"github.com/huonghan/storefront/internal/logging"
)

const userID = "u-1"

func seed(t *testing.T, addresses ...identity.Address) (*Service, identity.Repository) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	user := identity.User{ID: userID, Email: "lan@example.com", Addresses: addresses}
	for i := range addresses {
		if addresses[i].IsDefault {
			snapshot := addresses[i]
			user.DefaultAddress = &snapshot
		}
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return NewService(repo, logging.Discard()), repo
}

func load(t *testing.T, repo identity.Repository) identity.User {
	t.Helper()
	u, err := repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return u
}

// assertSingleDefault checks that exactly one address is flagged and the copy matches it.
func assertSingleDefault(t *testing.T, u identity.User) identity.Address {
	t.Helper()
	var flagged []identity.Address
	for _, a := range u.Addresses {
		if a.IsDefault {
			flagged = append(flagged, a)
		}
	}
	require.Len(t, flagged, 1)
	require.NotNil(t, u.DefaultAddress)
	assert.Equal(t, flagged[0], *u.DefaultAddress)
	return flagged[0]
}

func assertNoDefault(t *testing.T, u identity.User) {
	t.Helper()
	for _, a := range u.Addresses {
		assert.False(t, a.IsDefault)
	}
	assert.Nil(t, u.DefaultAddress)
}

func input(name string, def bool) Input {
	return Input{FullName: name, Phone: "0905", Line1: "12 Hung Vuong", City: "Hue", District: "Phu Nhuan", Ward: "Ward 4", IsDefault: def}
}

func TestSetDefaultMovesFlag(t *testing.T) {
	svc, repo := seed(t,
		identity.Address{ID: "a1", FullName: "One", IsDefault: true},
		identity.Address{ID: "a2", FullName: "Two"},
	)

	_, err := svc.SetDefault(context.Background(), userID, "a2")
	require.NoError(t, err)

	u := load(t, repo)
	assert.False(t, u.Addresses[0].IsDefault)
	assert.True(t, u.Addresses[1].IsDefault)
	def := assertSingleDefault(t, u)
	assert.Equal(t, "a2", def.ID)
	assert.Equal(t, "Two", u.DefaultAddress.FullName)
}

func TestAddDefaultReplacesPrevious(t *testing.T) {
	svc, repo := seed(t, identity.Address{ID: "a1", FullName: "One", IsDefault: true})

	updated, err := svc.Add(context.Background(), userID, input("New", true))
	require.NoError(t, err)
	require.Len(t, updated.Addresses, 2)
	assert.NotEmpty(t, updated.Addresses[1].ID)

	u := load(t, repo)
	def := assertSingleDefault(t, u)
	assert.Equal(t, "New", def.FullName)
	assert.Equal(t, updated.Addresses[1].ID, def.ID)
}

func TestAddNonDefaultKeepsExisting(t *testing.T) {
	svc, repo := seed(t, identity.Address{ID: "a1", FullName: "One", IsDefault: true})

	_, err := svc.Add(context.Background(), userID, input("Extra", false))
	require.NoError(t, err)

	u := load(t, repo)
	require.Len(t, u.Addresses, 2)
	def := assertSingleDefault(t, u)
	assert.Equal(t, "a1", def.ID)
}

func TestAddFirstNonDefaultLeavesNoDefault(t *testing.T) {
	svc, repo := seed(t)

	_, err := svc.Add(context.Background(), userID, input("First", false))
	require.NoError(t, err)

	assertNoDefault(t, load(t, repo))
}

func TestUpdateResolvesPositionally(t *testing.T) {
	svc, repo := seed(t,
		identity.Address{FullName: "Zero"},
		identity.Address{FullName: "One"},
		identity.Address{FullName: "Two"},
	)

	_, err := svc.Update(context.Background(), userID, "1", input("Renamed", false))
	require.NoError(t, err)

	u := load(t, repo)
	assert.Equal(t, "Zero", u.Addresses[0].FullName)
	assert.Equal(t, "Renamed", u.Addresses[1].FullName)
	assert.Equal(t, "Two", u.Addresses[2].FullName)
	assertNoDefault(t, u)
}

func TestUpdateToDefaultRefreshesSnapshot(t *testing.T) {
	svc, repo := seed(t,
		identity.Address{ID: "a1", FullName: "One", IsDefault: true},
		identity.Address{ID: "a2", FullName: "Two"},
	)

	_, err := svc.Update(context.Background(), userID, "a2", input("Two v2", true))
	require.NoError(t, err)

	u := load(t, repo)
	def := assertSingleDefault(t, u)
	assert.Equal(t, "a2", def.ID)
	assert.Equal(t, "Two v2", u.DefaultAddress.FullName)
	assert.Equal(t, "Ward 4", u.DefaultAddress.Ward)
}

func TestUpdateWithoutDefaultLeavesOthersAlone(t *testing.T) {
	svc, repo := seed(t,
		identity.Address{ID: "a1", FullName: "One", IsDefault: true},
		identity.Address{ID: "a2", FullName: "Two"},
	)

	_, err := svc.Update(context.Background(), userID, "a2", input("Two v2", false))
	require.NoError(t, err)

	u := load(t, repo)
	def := assertSingleDefault(t, u)
	assert.Equal(t, "a1", def.ID)
	assert.Equal(t, "One", def.FullName)
}

func TestUpdateOfCurrentDefaultKeepsSnapshotInSync(t *testing.T) {
	svc, repo := seed(t,
		identity.Address{ID: "a1", FullName: "One", IsDefault: true},
		identity.Address{ID: "a2", FullName: "Two"},
	)

	_, err := svc.Update(context.Background(), userID, "a1", input("One v2", false))
	require.NoError(t, err)

	u := load(t, repo)
	def := assertSingleDefault(t, u)
	assert.Equal(t, "a1", def.ID)
	assert.Equal(t, "One v2", u.DefaultAddress.FullName)
}

func TestDeleteDefaultClearsSnapshot(t *testing.T) {
	svc, repo := seed(t,
		identity.Address{ID: "a1", FullName: "One", IsDefault: true},
		identity.Address{ID: "a2", FullName: "Two"},
	)

	_, err := svc.Delete(context.Background(), userID, "a1")
	require.NoError(t, err)

	u := load(t, repo)
	require.Len(t, u.Addresses, 1)
	assert.Equal(t, "a2", u.Addresses[0].ID)
	assertNoDefault(t, u)
}

func TestDeleteNonDefaultKeepsSnapshot(t *testing.T) {
	svc, repo := seed(t,
		identity.Address{FullName: "Zero"},
		identity.Address{FullName: "One", IsDefault: true},
	)

	_, err := svc.Delete(context.Background(), userID, "0")
	require.NoError(t, err)

	u := load(t, repo)
	require.Len(t, u.Addresses, 1)
	def := assertSingleDefault(t, u)
	assert.Equal(t, "One", def.FullName)
}

func TestUnknownKeyAbortsWithoutSaving(t *testing.T) {
	svc, repo := seed(t, identity.Address{ID: "a1", FullName: "One", IsDefault: true})
	before := load(t, repo)
	ctx := context.Background()

	_, err := svc.Update(ctx, userID, "zzz", input("X", true))
	require.ErrorIs(t, err, ErrAddressNotFound)
	_, err = svc.SetDefault(ctx, userID, "5")
	require.ErrorIs(t, err, ErrAddressNotFound)
	_, err = svc.Delete(ctx, userID, "-1")
	require.ErrorIs(t, err, ErrAddressNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	after := load(t, repo)
	assert.Equal(t, before.Addresses, after.Addresses)
	assert.Equal(t, before.DefaultAddress, after.DefaultAddress)
}

func TestInvalidInputRejected(t *testing.T) {
	svc, repo := seed(t)

	_, err := svc.Add(context.Background(), userID, Input{FullName: "No street"})
	require.ErrorIs(t, err, ErrInvalidAddress)
	assert.Empty(t, load(t, repo).Addresses)
}

func TestSaveFailureSurfaces(t *testing.T) {
	repo := identity.NewMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), identity.User{ID: userID, Addresses: []identity.Address{{ID: "a1"}}}))
	svc := NewService(&brokenSaveRepo{Repository: repo}, logging.Discard())

	_, err := svc.SetDefault(context.Background(), userID, "a1")
	require.Error(t, err)
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))

	u := load(t, repo)
	assertNoDefault(t, u)
}

func TestInvariantHoldsAcrossSequence(t *testing.T) {
	svc, repo := seed(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, userID, input("A", true))
	require.NoError(t, err)
	_, err = svc.Add(ctx, userID, input("B", true))
	require.NoError(t, err)
	_, err = svc.Add(ctx, userID, input("C", false))
	require.NoError(t, err)
	assert.Equal(t, "B", assertSingleDefault(t, load(t, repo)).FullName)

	_, err = svc.SetDefault(ctx, userID, "2")
	require.NoError(t, err)
	assert.Equal(t, "C", assertSingleDefault(t, load(t, repo)).FullName)

	_, err = svc.Update(ctx, userID, "0", input("A2", true))
	require.NoError(t, err)
	assert.Equal(t, "A2", assertSingleDefault(t, load(t, repo)).FullName)

	_, err = svc.Delete(ctx, userID, "0")
	require.NoError(t, err)
	assertNoDefault(t, load(t, repo))
}

type brokenSaveRepo struct {
	identity.Repository
}

func (brokenSaveRepo) Save(context.Context, identity.User) error {
	return apperror.Persistence(errors.New("write timeout"))
}
