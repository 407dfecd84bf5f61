// Package cli provides the interactive MouseTrap endpoint client.
//
// It wires configuration, the protocol client, the learn collector, the
// anomaly guard and the lock listener, and runs a REPL over them:
//
//	register    create an account
//	login       authenticate
//	learn       start uploading motion samples in the background
//	stoplearn   stop uploading
//	defend      fetch the trained model and start monitoring
//	stop        stop monitoring
//	users       list accounts (admin)
//	deluser     delete an account (admin)
//	exit        leave the program
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
