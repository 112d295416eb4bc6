package server

// playTable is the command set for the Playing state. The world
// simulation does not exist yet, so movement verbs answer politely
// instead of doing anything; quit and logout end the session cleanly.
var playTable = NewTable(buildPlayCommands(), nil)

func buildPlayCommands() map[string]Handler {
	cmds := map[string]Handler{
		"quit":   cmdPlayQuit,
		"logout": cmdPlayQuit,
		"who":    cmdWho,
		"stats":  cmdStats,
	}
	for _, dir := range []string{
		"north", "n", "northeast", "ne", "east", "e",
		"southeast", "se", "south", "s", "southwest", "sw",
		"west", "w", "northwest", "nw", "up", "u", "down", "d",
		"in", "out",
	} {
		cmds[dir] = cmdGo
	}
	return cmds
}

func cmdPlayQuit(s *Session, _ []string) Action {
	return Disconnect(s.srv.Texts.Quit())
}

func cmdGo(s *Session, _ []string) Action {
	return Noop("There is nowhere to go yet. The world is still being built.")
}
