//go:build !race

package accounts

import "golang.org/x/crypto/bcrypt"

func init() {
	hashCost = bcrypt.MinCost
}
