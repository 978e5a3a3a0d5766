package accounts

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AccountsControllerRoutes are the paths mounted under the controller prefix
type AccountsControllerRoutes struct {
	Login                string
	Logout               string
	Register             string
	Activate             string
	ActivationResend     string
	PasswordReset        string
	PasswordResetConfirm string
	PasswordChange       string
	RecoverUsername      string
	ChangeProfile        string
	ChangeEmail          string
	ChangeEmailConfirm   string
}

// AccountsController exposes the Lifecycle as JSON endpoints
type AccountsController struct {
	Debug     bool
	Logger    Logger
	Lifecycle *Lifecycle
	Auther    *RouteAuthenticator
	Routes    *AccountsControllerRoutes
}

type AccountsControllerOption func(*AccountsController) *AccountsController

// WithControllerLogger overrides the logger
func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(a *AccountsController) *AccountsController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

// WithControllerDebug logs handler failures with their error details
func WithControllerDebug(debug bool) AccountsControllerOption {
	return func(a *AccountsController) *AccountsController {
		a.Debug = debug
		return a
	}
}

// WithRouteAuthenticator sets the session handling used by the controller
func WithRouteAuthenticator(auther *RouteAuthenticator) AccountsControllerOption {
	return func(a *AccountsController) *AccountsController {
		a.Auther = auther
		return a
	}
}

// WithControllerRoutes overrides the route paths
func WithControllerRoutes(routes *AccountsControllerRoutes) AccountsControllerOption {
	return func(a *AccountsController) *AccountsController {
		if routes != nil {
			a.Routes = routes
		}
		return a
	}
}

// NewAccountsController returns a controller serving lifecycle, with the
// default route paths unless overridden by opts
func NewAccountsController(lifecycle *Lifecycle, opts ...AccountsControllerOption) *AccountsController {
	if lifecycle == nil {
		panic("Missing Lifecycle in accounts controller...")
	}

	c := &AccountsController{
		Logger:    defLogger{},
		Lifecycle: lifecycle,
		Routes: &AccountsControllerRoutes{
			Login:                "/login",
			Logout:               "/logout",
			Register:             "/register",
			Activate:             "/activate/:code",
			ActivationResend:     "/activate/resend",
			PasswordReset:        "/password/reset",
			PasswordResetConfirm: "/password/reset/confirm",
			PasswordChange:       "/password/change",
			RecoverUsername:      "/recover/username",
			ChangeProfile:        "/change/profile",
			ChangeEmail:          "/change/email",
			ChangeEmailConfirm:   "/change/email/:code",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		c.Auther = NewRouteAuthenticator(lifecycle, WithRouteLogger(c.Logger))
	}

	return c
}

// RegisterAccountRoutes mounts the account endpoints on r
func RegisterAccountRoutes(r fiber.Router, lifecycle *Lifecycle, opts ...AccountsControllerOption) *AccountsController {
	controller := NewAccountsController(lifecycle, opts...)

	guest := controller.Auther.GuestOnly()
	protected := controller.Auther.ProtectedRoute()

	r.Post(controller.Routes.Login, guest, controller.LoginPost).Name("accounts.login")
	r.Post(controller.Routes.Logout, controller.LogOut).Name("accounts.logout")
	r.Post(controller.Routes.Register, guest, controller.RegistrationCreate).Name("accounts.register")

	r.Post(controller.Routes.ActivationResend, guest, controller.ActivationResend).Name("accounts.activate.resend")
	r.Get(controller.Routes.Activate, controller.Activate).Name("accounts.activate")

	r.Post(controller.Routes.PasswordReset, guest, controller.PasswordResetPost).Name("accounts.password.reset")
	r.Post(controller.Routes.PasswordResetConfirm, guest, controller.PasswordResetExecute).Name("accounts.password.reset.confirm")
	r.Post(controller.Routes.PasswordChange, protected, controller.PasswordChange).Name("accounts.password.change")
	r.Post(controller.Routes.RecoverUsername, guest, controller.RecoverUsername).Name("accounts.recover.username")

	r.Get("/me", protected, controller.Me).Name("accounts.me")
	r.Post(controller.Routes.ChangeProfile, protected, controller.ChangeProfile).Name("accounts.change.profile")
	r.Post(controller.Routes.ChangeEmail, protected, controller.ChangeEmail).Name("accounts.change.email")
	r.Get(controller.Routes.ChangeEmailConfirm, controller.ChangeEmailConfirm).Name("accounts.change.email.confirm")

	return controller
}

// AccountResponse is the public view of a User
type AccountResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
}

func accountResponse(user *User) AccountResponse {
	return AccountResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		IsActive:  user.IsActive,
	}
}

func (a *AccountsController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	result, err := a.Auther.Login(c, *payload)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"account":    accountResponse(result.User),
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"persistent": result.Persistent,
	})
}

func (a *AccountsController) LogOut(c *fiber.Ctx) error {
	a.Auther.Logout(c)
	return c.SendStatus(http.StatusNoContent)
}

func (a *AccountsController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegisterUserMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	user, err := a.Lifecycle.RegisterUser(c.UserContext(), *payload)
	if err != nil {
		return a.fail(c, err)
	}

	res := fiber.Map{
		"account":             accountResponse(user),
		"activation_required": !user.IsActive,
	}

	// without activation gating the new account is signed in right away
	if user.IsActive {
		result, err := a.Auther.Login(c, LoginMessage{
			Identifier: a.loginIdentifier(user),
			Password:   payload.Password,
		})
		if err != nil {
			a.Logger.Warn("sign in after registration failed", "user_id", user.ID, "error", err)
		} else {
			res["token"] = result.Token
		}
	}

	return c.Status(http.StatusCreated).JSON(res)
}

func (a *AccountsController) Activate(c *fiber.Ctx) error {
	user, err := a.Lifecycle.ActivateAccount(c.UserContext(), c.Params("code"))
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{"account": accountResponse(user)})
}

func (a *AccountsController) ActivationResend(c *fiber.Ctx) error {
	payload := new(ResendActivationCodeMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	if err := a.Lifecycle.ResendActivationCode(c.UserContext(), *payload); err != nil {
		return a.fail(c, err)
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{"sent": true})
}

func (a *AccountsController) PasswordResetPost(c *fiber.Ctx) error {
	payload := new(InitializePasswordResetMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	if _, err := a.Lifecycle.RequestPasswordReset(c.UserContext(), *payload); err != nil {
		return a.fail(c, err)
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{"sent": true})
}

func (a *AccountsController) PasswordResetExecute(c *fiber.Ctx) error {
	payload := new(FinalizePasswordResetMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	user, err := a.Lifecycle.FinalizePasswordReset(c.UserContext(), *payload)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{"account": accountResponse(user)})
}

func (a *AccountsController) PasswordChange(c *fiber.Ctx) error {
	current, _ := CurrentUser(c)

	payload := new(ChangePasswordMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}
	payload.UserID = current.ID

	if _, err := a.Lifecycle.ChangePassword(c.UserContext(), *payload); err != nil {
		return a.fail(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

func (a *AccountsController) RecoverUsername(c *fiber.Ctx) error {
	payload := new(RemindUsernameMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	if err := a.Lifecycle.RemindUsername(c.UserContext(), *payload); err != nil {
		return a.fail(c, err)
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{"sent": true})
}

func (a *AccountsController) Me(c *fiber.Ctx) error {
	current, _ := CurrentUser(c)
	return c.JSON(fiber.Map{"account": accountResponse(current)})
}

func (a *AccountsController) ChangeProfile(c *fiber.Ctx) error {
	current, _ := CurrentUser(c)

	payload := new(ChangeProfileMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}
	payload.UserID = current.ID

	user, err := a.Lifecycle.ChangeProfile(c.UserContext(), *payload)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{"account": accountResponse(user)})
}

func (a *AccountsController) ChangeEmail(c *fiber.Ctx) error {
	current, _ := CurrentUser(c)

	payload := new(RequestEmailChangeMessage)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}
	payload.UserID = current.ID

	code, err := a.Lifecycle.RequestEmailChange(c.UserContext(), *payload)
	if err != nil {
		return a.fail(c, err)
	}

	if code != nil {
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"confirmation_required": true})
	}

	return c.JSON(fiber.Map{"confirmation_required": false})
}

func (a *AccountsController) ChangeEmailConfirm(c *fiber.Ctx) error {
	user, err := a.Lifecycle.ConfirmEmailChange(c.UserContext(), c.Params("code"))
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{"account": accountResponse(user)})
}

func (a *AccountsController) bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body").
			WithTextCode(TextCodeInvalidPayload).
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

func (a *AccountsController) fail(c *fiber.Ctx, err error) error {
	if a.Debug {
		richErr := AsError(err)
		a.Logger.Debug("accounts handler error",
			"path", c.Path(),
			"error", err,
			"text_code", richErr.TextCode,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	}
	return a.Auther.ErrorHandler(c, err)
}

func (a *AccountsController) loginIdentifier(user *User) string {
	if a.Lifecycle.Config().LoginIdentifier == IdentifierUsername {
		return user.Username
	}
	return user.Email
}
