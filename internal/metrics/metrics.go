package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_otp_issued_total",
		Help: "Password reset codes issued.",
	})

	OTPVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_otp_verified_total",
		Help: "Password reset codes successfully verified.",
	})

	OTPConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_otp_consumed_total",
		Help: "Password changes completed with a verified code.",
	})

	OTPRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_otp_rejected_total",
		Help: "Code verification attempts rejected, by reason.",
	}, []string{"reason"})

	EmailSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_email_send_failures_total",
		Help: "Outbound emails that could not be delivered.",
	})
)
