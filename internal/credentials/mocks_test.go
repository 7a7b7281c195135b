// internal/credentials/mocks_test.go
package credentials

import (
	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Lookup(service, username string) (pypi.Credentials, bool, error) {
	args := m.Called(service, username)
	return args.Get(0).(pypi.Credentials), args.Bool(1), args.Error(2)
}

func (m *mockStore) Save(service string, creds pypi.Credentials) error {
	return m.Called(service, creds).Error(0)
}

type mockPrompter struct {
	mock.Mock
}

func (m *mockPrompter) Username() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockPrompter) Password(username string) (string, error) {
	args := m.Called(username)
	return args.String(0), args.Error(1)
}
