package server

// Logo returns the greeting banner written to every new client, before
// the first prompt.
func Logo() string {
	return "\n" +
		"                                          _                        \n" +
		"  __ _ _ __ ___ _   _ ___    __ _ _ __   __ _| |_ ___  _ __ ___  _   _ \n" +
		" / _` | '__/ _ \\ | | / __|  / _` | '_ \\ / _` | __/ _ \\| '_ ` _ \\| | | |\n" +
		"| (_| | | |  __/ |_| \\__ \\ | (_| | | | | (_| | || (_) | | | | | | |_| |\n" +
		" \\__, |_|  \\___|\\__, |___/  \\__,_|_| |_|\\__,_|\\__\\___/|_| |_| |_|\\__, |\n" +
		" |___/          |___/                                             |___/ \n" +
		"\n" +
		"type help for a command list.\n\n"
}
