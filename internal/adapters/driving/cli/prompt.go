package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// passwordReader reads one password. Replaced in tests.
var passwordReader = readPassword

// PromptingEndpoints wraps store so that endpoints with a username but no
// password or token ask for the password interactively, once per endpoint.
func PromptingEndpoints(store driven.EndpointStore, prompt io.Writer) driven.EndpointStore {
	return &promptingStore{
		EndpointStore: store,
		prompt:        prompt,
		passwords:     make(map[string]string),
	}
}

type promptingStore struct {
	driven.EndpointStore

	mu        sync.Mutex
	prompt    io.Writer
	passwords map[string]string
}

// Get returns the endpoint with a prompted password filled in when needed.
func (s *promptingStore) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	ep, err := s.EndpointStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep.Username == "" || ep.Password != "" || ep.Token != "" {
		return ep, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	password, ok := s.passwords[id]
	if !ok {
		fmt.Fprintf(s.prompt, "Password for %s@%s: ", ep.Username, id)
		password = passwordReader()
		fmt.Fprintln(s.prompt)
		s.passwords[id] = password
	}
	ep.Password = password
	return ep, nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
