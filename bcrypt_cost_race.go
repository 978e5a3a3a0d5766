//go:build race

package accounts

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race builds run the sqlite suites under strict timeouts
	return bcrypt.MinCost
}
