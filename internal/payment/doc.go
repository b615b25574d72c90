// Package payment generates rent schedules and settles, flags and
// penalizes individual payments.
//
// Schedules step due dates with an Interval: calendar months (end-of-month
// safe) in production, or a fixed duration. Periods start at 2 because
// period 1 is the first payment recorded on the contract itself.
package payment
