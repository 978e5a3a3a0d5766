package accounts

var PasswordHashCost = passwordHashCost
