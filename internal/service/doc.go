// Package service provides application-level services sitting between the
// HTTP handlers and the stores: journal reads with ownership enforcement,
// and signed download tokens for backup archives (see the auth subpackage).
package service
