// Package cognito binds identity.Provider to an AWS Cognito user pool app
// client through aws-sdk-go-v2.
//
// Password sign-in uses USER_PASSWORD_AUTH; SMS_MFA and EMAIL_OTP
// challenges surface as MFA challenges. Passwordless sign-in uses the
// USER_AUTH flow with EMAIL_OTP or SMS_OTP as the preferred challenge. When
// the app client has a secret every call carries a SECRET_HASH. Cognito
// exceptions are translated to identity errors by their error code.
package cognito
