package registry

import (
	"context"
	"errors"
	"strings"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// dockerHubHosts are the names Docker Hub credentials may be stored under.
var dockerHubHosts = []string{
	"https://index.docker.io/v1/",
	"index.docker.io",
	"registry-1.docker.io",
	"docker.io",
}

// DefaultCredentialStore reads credentials from the Docker config
// (~/.docker/config.json) and its credential helpers.
func DefaultCredentialStore() (credentials.Store, error) {
	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		return nil, err
	}
	return &dockerHubStore{Store: store}, nil
}

// StaticCredentials returns a read-only store holding one username and
// password for registry.
func StaticCredentials(registry, username, password string) credentials.Store {
	return &staticStore{
		host: hostOf(registry),
		cred: auth.Credential{Username: username, Password: password},
	}
}

// StaticToken returns a read-only store holding one bearer token for registry.
func StaticToken(registry, token string) credentials.Store {
	return &staticStore{
		host: hostOf(registry),
		cred: auth.Credential{AccessToken: token},
	}
}

type staticStore struct {
	host string
	cred auth.Credential
}

func (s *staticStore) Get(_ context.Context, serverAddress string) (auth.Credential, error) {
	host := hostOf(serverAddress)
	if host == s.host || (isDockerHub(host) && isDockerHub(s.host)) {
		return s.cred, nil
	}
	return auth.EmptyCredential, nil
}

func (s *staticStore) Put(context.Context, string, auth.Credential) error {
	return errors.New("registry: static credential store is read-only")
}

func (s *staticStore) Delete(context.Context, string) error {
	return errors.New("registry: static credential store is read-only")
}

// dockerHubStore retries Docker Hub lookups under each of its aliases.
type dockerHubStore struct {
	credentials.Store
}

func (s *dockerHubStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	cred, err := s.Store.Get(ctx, serverAddress)
	if err == nil && !isEmptyCredential(cred) {
		return cred, nil
	}
	if !isDockerHub(hostOf(serverAddress)) {
		return cred, err
	}
	for _, alias := range dockerHubHosts {
		if alias == serverAddress {
			continue
		}
		if alt, altErr := s.Store.Get(ctx, alias); altErr == nil && !isEmptyCredential(alt) {
			return alt, nil
		}
	}
	return cred, err
}

// hostOf strips the scheme and path from a server address, keeping the port.
func hostOf(addr string) string {
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimPrefix(addr, "http://")
	addr, _, _ = strings.Cut(addr, "/")
	return addr
}

func isDockerHub(hostport string) bool {
	host := hostport
	if i := strings.LastIndexByte(host, ':'); i != -1 && !strings.HasSuffix(host, "]") {
		host = host[:i]
	}
	switch host {
	case "docker.io", "registry-1.docker.io", "index.docker.io":
		return true
	}
	return false
}

func isEmptyCredential(cred auth.Credential) bool {
	return cred.Username == "" && cred.Password == "" && cred.AccessToken == "" && cred.RefreshToken == ""
}
