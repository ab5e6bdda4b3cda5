package ledger

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// AccountSet holds the fixed set of account paths declared in the ledger.
// Importers never create accounts; an entry referencing an account that is
// not in the set must be rejected.
type AccountSet struct {
	accounts map[string]bool
}

// NewAccountSet creates an AccountSet from a list of account paths.
func NewAccountSet(names ...string) *AccountSet {
	set := &AccountSet{accounts: make(map[string]bool, len(names))}
	for _, name := range names {
		set.accounts[name] = true
	}
	return set
}

// LoadAccounts reads account declarations from a Beancount-style file.
// A declaration is a line of the form "YYYY-MM-DD open <account path>";
// everything after "open " up to an end-of-line comment is the account path,
// so colon-delimited paths containing spaces are preserved.
func LoadAccounts(path string) (*AccountSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()

	set := &AccountSet{accounts: make(map[string]bool)}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		idx := strings.Index(line, " open ")
		if idx < 0 {
			continue
		}

		account := line[idx+len(" open "):]
		if c := strings.Index(account, " ;"); c >= 0 {
			account = account[:c]
		}
		account = strings.TrimSpace(account)
		if account != "" {
			set.accounts[account] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	if len(set.accounts) == 0 {
		return nil, fmt.Errorf("no account declarations found in %s", path)
	}

	return set, nil
}

// Has checks if an account path is declared.
func (s *AccountSet) Has(account string) bool {
	return s.accounts[account]
}

// Len returns the number of declared accounts.
func (s *AccountSet) Len() int {
	return len(s.accounts)
}

// Names returns all declared account paths in sorted order.
func (s *AccountSet) Names() []string {
	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
