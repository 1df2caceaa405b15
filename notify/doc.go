// Package notify delivers one-time codes to the channel an identifier
// names. The engine classifies the identifier (email or mobile) and hands
// the code to the matching [Sender]; delivery transports are pluggable so
// tests can capture codes instead of sending them.
package notify
