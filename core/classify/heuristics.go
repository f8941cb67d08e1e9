package classify

import "regexp"

// listMarker matches bullets, "1. ", "a) ", "A) ", "(a) " and "(A) ".
var listMarker = regexp.MustCompile(`^([•\-\*◦►○]|\d+\.|[a-z]\)|[A-Z]\)|\([a-z]\)|\([A-Z]\))\s+`)

// imperativeStart matches instructions that open with a verb.
var imperativeStart = regexp.MustCompile(`(?i)^(read,|understand|comply|report|maintain|avoid|use|respect|promote|cooperate|ensure|follow|wear|keep|replace|check|verify|submit)`)

// modalPhrase matches obligations anywhere in the text.
var modalPhrase = regexp.MustCompile(`(?i)(must |shall |will |should |are required to|are responsible for)`)
