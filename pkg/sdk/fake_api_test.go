package sdk_test

import (
	"context"
	"sync/atomic"

	"github.com/terraconstructs/rollcall/pkg/sdk"
)

// fakeAPI implements sdk.API with overridable funcs and call counters.
type fakeAPI struct {
	loginFunc       func(context.Context, sdk.LoginInput) (*sdk.LoginResponse, error)
	currentUserFunc func(context.Context) (*sdk.User, error)
	profileFunc     func(context.Context) (*sdk.Profile, error)
	mapTokenFunc    func(context.Context) (string, error)

	loginCalls       atomic.Int32
	currentUserCalls atomic.Int32
	profileCalls     atomic.Int32
}

var _ sdk.API = (*fakeAPI)(nil)

func (f *fakeAPI) Login(ctx context.Context, in sdk.LoginInput) (*sdk.LoginResponse, error) {
	f.loginCalls.Add(1)
	if f.loginFunc != nil {
		return f.loginFunc(ctx, in)
	}
	return nil, &sdk.APIError{StatusCode: 501}
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*sdk.User, error) {
	f.currentUserCalls.Add(1)
	if f.currentUserFunc != nil {
		return f.currentUserFunc(ctx)
	}
	// no user in the response keeps the cached one
	return nil, nil
}

func (f *fakeAPI) Profile(ctx context.Context) (*sdk.Profile, error) {
	f.profileCalls.Add(1)
	if f.profileFunc != nil {
		return f.profileFunc(ctx)
	}
	return &sdk.Profile{IsCompleteProfile: true}, nil
}

func (f *fakeAPI) MapToken(ctx context.Context) (string, error) {
	if f.mapTokenFunc != nil {
		return f.mapTokenFunc(ctx)
	}
	return "", nil
}

func student() *sdk.User {
	return &sdk.User{ID: 7, Email: "ada@example.edu", FirstName: "Ada", LastName: "Lovelace", Role: sdk.RoleStudent, IsProfileComplete: true}
}

// storedStore returns a credential store already holding a session for u.
func storedStore(u *sdk.User) (*sdk.CredentialStore, *sdk.MemoryStorage) {
	storage := sdk.NewMemoryStorage()
	store := sdk.NewCredentialStore(storage)
	_ = store.Save(&sdk.Credentials{AccessToken: "stored-access", RefreshToken: "stored-refresh", User: u})
	return store, storage
}

func profile(complete bool) func(context.Context) (*sdk.Profile, error) {
	return func(context.Context) (*sdk.Profile, error) {
		return &sdk.Profile{IsCompleteProfile: complete}, nil
	}
}

func loginOK(u *sdk.User) func(context.Context, sdk.LoginInput) (*sdk.LoginResponse, error) {
	return func(context.Context, sdk.LoginInput) (*sdk.LoginResponse, error) {
		return &sdk.LoginResponse{Access: "new-access", Refresh: "new-refresh", User: u}, nil
	}
}
