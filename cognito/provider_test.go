package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// fakeAPI records inputs and answers with the configured outputs.
type fakeAPI struct {
	signUp      *cip.SignUpInput
	initiate    []*cip.InitiateAuthInput
	responds    []*cip.RespondToAuthChallengeInput
	signOuts    int
	mfaSettings *cip.SetUserMFAPreferenceInput

	signUpOut   *cip.SignUpOutput
	initiateOut *cip.InitiateAuthOutput
	respondOut  []*cip.RespondToAuthChallengeOutput
	respondErr  []error
	getUserOut  *cip.GetUserOutput
	err         error
}

func apiErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func (f *fakeAPI) SignUp(_ context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	f.signUp = in
	if f.err != nil {
		return nil, f.err
	}
	return f.signUpOut, nil
}

func (f *fakeAPI) ConfirmSignUp(_ context.Context, _ *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cip.ConfirmSignUpOutput{}, nil
}

func (f *fakeAPI) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.initiate = append(f.initiate, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.initiateOut, nil
}

func (f *fakeAPI) RespondToAuthChallenge(_ context.Context, in *cip.RespondToAuthChallengeInput, _ ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error) {
	i := len(f.responds)
	f.responds = append(f.responds, in)
	if i < len(f.respondErr) && f.respondErr[i] != nil {
		return nil, f.respondErr[i]
	}
	return f.respondOut[i], nil
}

func (f *fakeAPI) GetUser(_ context.Context, _ *cip.GetUserInput, _ ...func(*cip.Options)) (*cip.GetUserOutput, error) {
	if f.getUserOut == nil {
		return nil, apiErr("NotAuthorizedException")
	}
	return f.getUserOut, nil
}

func (f *fakeAPI) GlobalSignOut(_ context.Context, _ *cip.GlobalSignOutInput, _ ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	f.signOuts++
	if f.err != nil {
		return nil, f.err
	}
	return &cip.GlobalSignOutOutput{}, nil
}

func (f *fakeAPI) ForgotPassword(_ context.Context, _ *cip.ForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cip.ForgotPasswordOutput{}, nil
}

func (f *fakeAPI) ConfirmForgotPassword(_ context.Context, _ *cip.ConfirmForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cip.ConfirmForgotPasswordOutput{}, nil
}

func (f *fakeAPI) SetUserMFAPreference(_ context.Context, in *cip.SetUserMFAPreferenceInput, _ ...func(*cip.Options)) (*cip.SetUserMFAPreferenceOutput, error) {
	f.mfaSettings = in
	if f.err != nil {
		return nil, f.err
	}
	return &cip.SetUserMFAPreferenceOutput{}, nil
}

func authResult() *types.AuthenticationResultType {
	return &types.AuthenticationResultType{
		AccessToken:  aws.String("access"),
		RefreshToken: aws.String("refresh"),
		IdToken:      aws.String("id"),
		ExpiresIn:    3600,
	}
}

func userOut() *cip.GetUserOutput {
	return &cip.GetUserOutput{
		Username: aws.String("pool-user"),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("sub"), Value: aws.String("sub-1")},
			{Name: aws.String("email"), Value: aws.String("a@b.com")},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
			{Name: aws.String("name"), Value: aws.String("Alice")},
		},
	}
}

func newTestProvider(t *testing.T, api *fakeAPI, mutate func(*Config)) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ClientID = "client-1"
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(api, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); !errors.Is(err, ErrAPIRequired) {
		t.Fatalf("expected ErrAPIRequired, got %v", err)
	}
	if _, err := New(&fakeAPI{}, DefaultConfig()); err == nil {
		t.Fatal("expected missing ClientID to be rejected")
	}
}

func TestSecretHash(t *testing.T) {
	api := &fakeAPI{signUpOut: &cip.SignUpOutput{UserSub: aws.String("sub-1")}}
	p := newTestProvider(t, api, func(c *Config) { c.ClientSecret = "s3cret" })

	if _, err := p.Register(context.Background(), "a@b.com", "correct-horse", identity.Attributes{Email: "a@b.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte("a@b.com" + "client-1"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if got := aws.ToString(api.signUp.SecretHash); got != want {
		t.Fatalf("secret hash %q want %q", got, want)
	}

	noSecret := newTestProvider(t, api, nil)
	if _, err := noSecret.Register(context.Background(), "a@b.com", "correct-horse", identity.Attributes{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if api.signUp.SecretHash != nil {
		t.Fatal("no SECRET_HASH without a client secret")
	}
}

func TestRegisterMapsAttributesAndNextStep(t *testing.T) {
	api := &fakeAPI{signUpOut: &cip.SignUpOutput{UserSub: aws.String("sub-1")}}
	p := newTestProvider(t, api, nil)

	reg, err := p.Register(context.Background(), "alice", "correct-horse", identity.Attributes{
		Email: "a@b.com", Username: "alice", DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.SubjectID != "sub-1" || reg.Complete || reg.NextStep != identity.NextStepConfirmSignUp {
		t.Fatalf("unexpected registration %+v", reg)
	}
	names := map[string]string{}
	for _, a := range api.signUp.UserAttributes {
		names[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	if names["email"] != "a@b.com" || names["preferred_username"] != "alice" || names["name"] != "Alice" {
		t.Fatalf("unexpected attributes %v", names)
	}
	if _, ok := names["phone_number"]; ok {
		t.Fatal("empty attributes must not be sent")
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		code string
		call call
		want error
	}{
		{"NotAuthorizedException", callAuth, identity.ErrInvalidCredentials},
		{"NotAuthorizedException", callChallenge, identity.ErrExpiredSession},
		{"NotAuthorizedException", callSession, identity.ErrNoSession},
		{"UserNotFoundException", callAuth, identity.ErrInvalidCredentials},
		{"UserNotFoundException", callAccount, identity.ErrNotFound},
		{"UsernameExistsException", callAccount, identity.ErrAlreadyExists},
		{"UserNotConfirmedException", callAuth, identity.ErrNotConfirmed},
		{"CodeMismatchException", callChallenge, identity.ErrInvalidCode},
		{"ExpiredCodeException", callAccount, identity.ErrInvalidCode},
		{"InvalidPasswordException", callAccount, identity.ErrInvalidInput},
		{"TooManyRequestsException", callAuth, identity.ErrRateLimited},
		{"InternalErrorException", callAuth, identity.ErrUnavailable},
	}
	for _, tc := range cases {
		err := mapError(apiErr(tc.code), tc.call)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s (call %d): got %v want %v", tc.code, tc.call, err, tc.want)
		}
		var ae smithy.APIError
		if !errors.As(err, &ae) || ae.ErrorCode() != tc.code {
			t.Fatalf("%s: original error must stay in the chain", tc.code)
		}
	}

	if err := mapError(errors.New("dial tcp: refused"), callAuth); !errors.Is(err, identity.ErrUnavailable) {
		t.Fatalf("expected transport errors to be unavailable, got %v", err)
	}
	if err := mapError(context.DeadlineExceeded, callAuth); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("context errors must pass through, got %v", err)
	}
	if mapError(nil, callAuth) != nil {
		t.Fatal("nil must map to nil")
	}
}

func TestAuthenticateWithoutChallenge(t *testing.T) {
	api := &fakeAPI{
		initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: authResult()},
		getUserOut:  userOut(),
	}
	p := newTestProvider(t, api, nil)
	ctx := context.Background()

	auth, err := p.Authenticate(ctx, "a@b.com", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if auth.Tokens == nil || !auth.Tokens.Complete() || auth.Tokens.ExpiresAt.Before(time.Now()) {
		t.Fatalf("unexpected tokens %+v", auth.Tokens)
	}
	in := api.initiate[0]
	if in.AuthFlow != flowUserPassword || in.AuthParameters["USERNAME"] != "a@b.com" || in.AuthParameters["PASSWORD"] != "correct-horse" {
		t.Fatalf("unexpected InitiateAuth input %+v", in)
	}

	profile, err := p.CurrentIdentity(ctx)
	if err != nil {
		t.Fatalf("current identity: %v", err)
	}
	if profile.Subject != "sub-1" || !profile.EmailVerified || profile.DisplayName != "Alice" || profile.Username != "pool-user" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestAuthenticateSMSMFAThenExchange(t *testing.T) {
	api := &fakeAPI{
		initiateOut: &cip.InitiateAuthOutput{
			ChallengeName: challengeSMSMFA,
			Session:       aws.String("sess-1"),
			ChallengeParameters: map[string]string{
				"USER_ID_FOR_SRP":               "pool-user",
				"CODE_DELIVERY_DELIVERY_MEDIUM": "SMS",
			},
		},
		respondErr: []error{apiErr("CodeMismatchException"), nil},
		respondOut: []*cip.RespondToAuthChallengeOutput{nil, {AuthenticationResult: authResult()}},
		getUserOut: userOut(),
	}
	p := newTestProvider(t, api, nil)
	ctx := context.Background()

	auth, err := p.Authenticate(ctx, "a@b.com", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if auth.Challenge != identity.ChallengeMFA || auth.Session != "sess-1" || auth.Medium != identity.MediumSMS {
		t.Fatalf("unexpected challenge %+v", auth)
	}
	if _, err := p.CurrentTokens(ctx); !errors.Is(err, identity.ErrNoSession) {
		t.Fatalf("challenge must not sign in, got %v", err)
	}

	if _, err := p.ExchangeCode(ctx, "sess-1", "000000"); !errors.Is(err, identity.ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	ex, err := p.ExchangeCode(ctx, "sess-1", "123456")
	if err != nil {
		t.Fatalf("exchange after retry: %v", err)
	}
	if ex.Profile.Subject != "sub-1" || !ex.Tokens.Complete() {
		t.Fatalf("unexpected exchange %+v", ex)
	}
	last := api.responds[1]
	if last.ChallengeName != challengeSMSMFA || last.ChallengeResponses["SMS_MFA_CODE"] != "123456" || last.ChallengeResponses["USERNAME"] != "pool-user" {
		t.Fatalf("unexpected challenge response %+v", last)
	}
	if _, err := p.ExchangeCode(ctx, "sess-1", "123456"); !errors.Is(err, identity.ErrExpiredSession) {
		t.Fatalf("answered challenge must be forgotten, got %v", err)
	}
}

func TestExchangeExpiredSessionForgetsChallenge(t *testing.T) {
	api := &fakeAPI{
		initiateOut: &cip.InitiateAuthOutput{ChallengeName: challengeEmailOTP, Session: aws.String("sess-1")},
		respondErr:  []error{apiErr("NotAuthorizedException")},
		respondOut:  []*cip.RespondToAuthChallengeOutput{nil},
	}
	p := newTestProvider(t, api, nil)
	ctx := context.Background()

	req, err := p.RequestCode(ctx, "a@b.com", identity.MediumEmail)
	if err != nil {
		t.Fatalf("request code: %v", err)
	}
	if api.initiate[0].AuthFlow != flowUserAuth || api.initiate[0].AuthParameters["PREFERRED_CHALLENGE"] != "EMAIL_OTP" {
		t.Fatalf("unexpected InitiateAuth input %+v", api.initiate[0])
	}
	if _, err := p.ExchangeCode(ctx, req.Session, "123456"); !errors.Is(err, identity.ErrExpiredSession) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if _, err := p.ExchangeCode(ctx, req.Session, "123456"); !errors.Is(err, identity.ErrExpiredSession) {
		t.Fatalf("expected forgotten challenge, got %v", err)
	}
	if len(api.responds) != 1 {
		t.Fatalf("forgotten challenge must not reach Cognito, got %d calls", len(api.responds))
	}
}

func TestExchangeWrongCodeWithFreshSessionKeepsCallerSession(t *testing.T) {
	api := &fakeAPI{
		initiateOut: &cip.InitiateAuthOutput{
			ChallengeName:       challengeSMSMFA,
			Session:             aws.String("s1"),
			ChallengeParameters: map[string]string{"USER_ID_FOR_SRP": "pool-user"},
		},
		respondOut: []*cip.RespondToAuthChallengeOutput{
			{ChallengeName: challengeSMSMFA, Session: aws.String("s2")},
			{ChallengeName: challengeSMSMFA, Session: aws.String("s3")},
			{AuthenticationResult: authResult()},
		},
		getUserOut: userOut(),
	}
	p := newTestProvider(t, api, nil)
	ctx := context.Background()

	if _, err := p.Authenticate(ctx, "a@b.com", "correct-horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := p.ExchangeCode(ctx, "s1", "000000"); !errors.Is(err, identity.ErrInvalidCode) {
			t.Fatalf("attempt %d: expected invalid code, got %v", i, err)
		}
	}
	ex, err := p.ExchangeCode(ctx, "s1", "123456")
	if err != nil {
		t.Fatalf("retry on the original session: %v", err)
	}
	if !ex.Tokens.Complete() {
		t.Fatalf("unexpected exchange %+v", ex)
	}

	want := []string{"s1", "s2", "s3"}
	for i, in := range api.responds {
		if got := aws.ToString(in.Session); got != want[i] {
			t.Fatalf("respond %d sent session %q, want %q", i, got, want[i])
		}
	}
	if _, err := p.ExchangeCode(ctx, "s1", "123456"); !errors.Is(err, identity.ErrExpiredSession) {
		t.Fatalf("answered challenge must be forgotten, got %v", err)
	}
}

func TestExchangeUnknownSession(t *testing.T) {
	p := newTestProvider(t, &fakeAPI{}, nil)
	if _, err := p.ExchangeCode(context.Background(), "nope", "123456"); !errors.Is(err, identity.ErrExpiredSession) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestRequestCodeSMSUsesDestination(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		ChallengeName:       challengeSMSOTP,
		Session:             aws.String("sess-2"),
		ChallengeParameters: map[string]string{"CODE_DELIVERY_DESTINATION": "+*******0100"},
	}}
	p := newTestProvider(t, api, nil)

	req, err := p.RequestCode(context.Background(), "+15550100", identity.MediumSMS)
	if err != nil {
		t.Fatalf("request code: %v", err)
	}
	if req.Session != "sess-2" || req.Destination != "+*******0100" || req.Medium != identity.MediumSMS {
		t.Fatalf("unexpected code request %+v", req)
	}
	if _, err := p.RequestCode(context.Background(), "+15550100", "FAX"); !errors.Is(err, identity.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestInvalidateSessionForgetsTokensOnFailure(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: authResult()}}
	p := newTestProvider(t, api, nil)
	ctx := context.Background()

	if _, err := p.Authenticate(ctx, "a@b.com", "correct-horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	api.err = apiErr("InternalErrorException")
	if err := p.InvalidateSession(ctx); !errors.Is(err, identity.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := p.CurrentTokens(ctx); !errors.Is(err, identity.ErrNoSession) {
		t.Fatalf("tokens must be forgotten, got %v", err)
	}
	if err := p.InvalidateSession(ctx); !errors.Is(err, identity.ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
	if api.signOuts != 1 {
		t.Fatalf("expected one GlobalSignOut, got %d", api.signOuts)
	}
}

func TestSetMFAPreference(t *testing.T) {
	api := &fakeAPI{
		initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: authResult()},
		getUserOut:  userOut(),
	}
	p := newTestProvider(t, api, nil)
	ctx := context.Background()

	if _, err := p.SetMFAPreference(ctx, true, identity.MediumSMS); !errors.Is(err, identity.ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
	if _, err := p.Authenticate(ctx, "a@b.com", "correct-horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	profile, err := p.SetMFAPreference(ctx, true, identity.MediumSMS)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !profile.MFAEnabled || profile.MFAType != "SMS" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if s := api.mfaSettings.SMSMfaSettings; s == nil || !s.Enabled || !s.PreferredMfa {
		t.Fatalf("unexpected SMS settings %+v", s)
	}

	profile, err = p.SetMFAPreference(ctx, false, "")
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if profile.MFAEnabled || profile.MFAType != "" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if s := api.mfaSettings.EmailMfaSettings; s == nil || s.Enabled {
		t.Fatalf("disable must turn email MFA off too, got %+v", s)
	}
}

func TestPasswordResetErrors(t *testing.T) {
	api := &fakeAPI{err: apiErr("CodeMismatchException")}
	p := newTestProvider(t, api, nil)

	if err := p.ConfirmPasswordReset(context.Background(), "a@b.com", "123456", "battery-staple"); !errors.Is(err, identity.ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	api.err = nil
	if err := p.RequestPasswordReset(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
}

func TestResume(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(t, api, nil)
	ctx := context.Background()
	tokens := identity.Tokens{AccessToken: "access", RefreshToken: "refresh", IDToken: "id"}

	if err := p.Resume(ctx, tokens); !errors.Is(err, identity.ErrNoSession) {
		t.Fatalf("rejected access token must not resume, got %v", err)
	}
	if err := p.Resume(ctx, identity.Tokens{AccessToken: "access"}); !errors.Is(err, identity.ErrNoSession) {
		t.Fatalf("partial tokens must not resume, got %v", err)
	}

	api.getUserOut = userOut()
	if err := p.Resume(ctx, tokens); err != nil {
		t.Fatalf("resume: %v", err)
	}
	got, err := p.CurrentTokens(ctx)
	if err != nil || got != tokens {
		t.Fatalf("unexpected tokens %+v, %v", got, err)
	}
}
