// Package controller implements the admin panel's view controllers: the
// user listing (with lookup and creation), login, and logout. Controllers
// talk to the backend through an apiclient.Client whose Authorization
// default was installed by the gate, and report outcomes through a
// notify.Notifier.
package controller
