package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one goSession counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one goSession histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignupSuccess, Name: "gosession_signup_success_total", Help: "Successful registrations."},
	{ID: goSession.MetricSignupFailure, Name: "gosession_signup_failure_total", Help: "Failed registrations."},
	{ID: goSession.MetricVerificationSuccess, Name: "gosession_verification_success_total", Help: "Successful registration confirmations."},
	{ID: goSession.MetricVerificationFailure, Name: "gosession_verification_failure_total", Help: "Failed registration confirmations."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that authenticated without a challenge."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricMFARequired, Name: "gosession_mfa_required_total", Help: "Logins answered with an MFA challenge."},
	{ID: goSession.MetricMFAVerifySuccess, Name: "gosession_mfa_verify_success_total", Help: "Successful MFA code verifications."},
	{ID: goSession.MetricMFAVerifyFailure, Name: "gosession_mfa_verify_failure_total", Help: "Failed MFA code verifications."},
	{ID: goSession.MetricOTPRequestSuccess, Name: "gosession_otp_request_success_total", Help: "Delivered one-time code requests."},
	{ID: goSession.MetricOTPRequestFailure, Name: "gosession_otp_request_failure_total", Help: "Failed one-time code requests."},
	{ID: goSession.MetricOTPVerifySuccess, Name: "gosession_otp_verify_success_total", Help: "Successful one-time code verifications."},
	{ID: goSession.MetricOTPVerifyFailure, Name: "gosession_otp_verify_failure_total", Help: "Failed one-time code verifications."},
	{ID: goSession.MetricPasswordResetRequestSuccess, Name: "gosession_password_reset_request_success_total", Help: "Accepted password reset requests."},
	{ID: goSession.MetricPasswordResetRequestFailure, Name: "gosession_password_reset_request_failure_total", Help: "Failed password reset requests."},
	{ID: goSession.MetricPasswordResetConfirmSuccess, Name: "gosession_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: goSession.MetricPasswordResetConfirmFailure, Name: "gosession_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: goSession.MetricLogoutSuccess, Name: "gosession_logout_success_total", Help: "Completed logouts."},
	{ID: goSession.MetricLogoutFailure, Name: "gosession_logout_failure_total", Help: "Logouts rejected before reaching the provider."},
	{ID: goSession.MetricProviderLogoutFailure, Name: "gosession_provider_logout_failure_total", Help: "Provider session invalidations that failed during logout."},
	{ID: goSession.MetricRestoreSuccess, Name: "gosession_restore_success_total", Help: "Sessions restored from persistence."},
	{ID: goSession.MetricRestoreFailure, Name: "gosession_restore_failure_total", Help: "Restores that found a session but could not use it."},
	{ID: goSession.MetricRestoreMiss, Name: "gosession_restore_miss_total", Help: "Restores that found no persisted session."},
	{ID: goSession.MetricMFAPreferenceSuccess, Name: "gosession_mfa_preference_success_total", Help: "Successful MFA preference changes."},
	{ID: goSession.MetricMFAPreferenceFailure, Name: "gosession_mfa_preference_failure_total", Help: "Failed MFA preference changes."},
	{ID: goSession.MetricValidationRejected, Name: "gosession_validation_rejected_total", Help: "Operations rejected by local input validation."},
	{ID: goSession.MetricStateRejected, Name: "gosession_state_rejected_total", Help: "Operations rejected by the session state machine."},
	{ID: goSession.MetricPersistenceFailure, Name: "gosession_persistence_failure_total", Help: "Failed session store writes, reads or clears."},
}

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricProviderLatency, Name: "gosession_provider_latency_seconds", Help: "Identity provider call latency."},
}

// HistogramBoundValues are the finite bucket upper bounds in seconds. The
// last bucket is unbounded.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
