// Package ui implements the interactive terminal client using bubbletea's Elm architecture.
//
// The TUI is a two-view workflow:
//  1. [LoginView] : Sign in or sign up against the auth bridge
//  2. [ChatView] : Converse with the task assistant
//
// The [Model] implements bubbletea's standard Init/Update/View pattern and owns
// the transition between the two views: an established session moves the user
// into the chat, a logout moves them back to the login form. Assistant replies
// are rendered as markdown via glamour; sends run as tea commands so the UI
// stays responsive while a turn is on the wire.
package ui
