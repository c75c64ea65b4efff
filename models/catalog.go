package models

// Pick lists served to clients for the profile and team forms. These are
// presentation data, not constraints: free-text values are accepted too.

var GameSystems = []string{
	"Dungeons & Dragons",
	"Pathfinder",
	"Call of Cthulhu",
	"Cyberpunk",
	"Warhammer FRP",
	"Warhammer 40k",
	"Magic: The Gathering",
	"Pokemon TCG",
	"Vampire: The Masquerade",
	"Werewolf: The Apocalypse",
	"Board Games - Strategy",
	"Video Games - PC",
	"Video Games - Consoles",
}

var Locations = []string{
	"Warszawa", "Kraków", "Gdańsk", "Wrocław", "Poznań", "Łódź",
	"Rzeszów", "Lublin", "Katowice",
	"Online",
}

var MeetingTimeOptions = []string{
	"Weekday evenings",
	"Weekends",
	"Weekend evenings",
	"Flexible",
	"Selected dates (TBD)",
}
