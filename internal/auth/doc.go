// Package auth authenticates users against the directory and reconciles them
// with the local user and group tables.
//
// # Components
//
// GroupResolver reads the directory groups of a user, enforces the required
// group policy and creates, restores and updates the matching local groups.
//
// UserSynchronizer creates or updates the local user of a directory entry,
// applies the soft-delete policies, assigns the resolved memberships and merges
// the mapped attributes. Synchronization of one DN is serialized within the process.
//
// Authenticator is the entry point. It opens a directory session per call,
// checks the credentials and synchronizes the user. Every call returns its own
// Outcome carrying the diagnostic of that attempt, so concurrent logins never
// see each other's failures.
//
// Example usage:
//
//	a, err := auth.New(cfg, db, directory.NewLDAPConnector(cfg.LDAP, nil))
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
//	defer cancel()
//
//	outcome, err := a.Authenticate(ctx, "jdoe", "secret")
//	if err != nil {
//	    log.Info().Err(err).Str("diagnostic", outcome.Diagnostic).Msg("login failed")
//	}
//
// All failures are reported as errors wrapping one of the sentinels in
// errors.go. None of them are retried.
package auth
