//go:build !race

package accounts

var hashCost = 12

func passwordHashCost() int {
	return hashCost
}
