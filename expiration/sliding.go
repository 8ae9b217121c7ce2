package expiration

import "time"

/*
Sliding returns a policy implementing "expire after access".
Every time someone reads the data, the expiration timer is pushed forward. As long as the data keeps
getting used, it stays alive. If nobody touches it for a while, it expires.
*/
func Sliding(lifetime time.Duration) Policy {
	return Policy{Sliding: true, Lifetime: lifetime}
}

/*
OnAccess is called every time an entry is read successfully.

It returns the new deadline and true for sliding policies. Absolute policies
never move their deadline, so they return the zero time and false.
*/
func (p Policy) OnAccess(now time.Time) (time.Time, bool) {
	if !p.Sliding {
		return time.Time{}, false
	}
	return now.Add(p.Lifetime), true
}
