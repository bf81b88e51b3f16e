package tarot

// deck is the full 78-card deck in canonical order: major arcana 0-21,
// then wands, cups, swords, pentacles.
var deck = []Card{
	{Code: "major_00_the_fool", Name: "The Fool"},
	{Code: "major_01_the_magician", Name: "The Magician"},
	{Code: "major_02_the_high_priestess", Name: "The High Priestess"},
	{Code: "major_03_the_empress", Name: "The Empress"},
	{Code: "major_04_the_emperor", Name: "The Emperor"},
	{Code: "major_05_the_hierophant", Name: "The Hierophant"},
	{Code: "major_06_the_lovers", Name: "The Lovers"},
	{Code: "major_07_the_chariot", Name: "The Chariot"},
	{Code: "major_08_strength", Name: "Strength"},
	{Code: "major_09_the_hermit", Name: "The Hermit"},
	{Code: "major_10_wheel_of_fortune", Name: "Wheel of Fortune"},
	{Code: "major_11_justice", Name: "Justice"},
	{Code: "major_12_the_hanged_man", Name: "The Hanged Man"},
	{Code: "major_13_death", Name: "Death"},
	{Code: "major_14_temperance", Name: "Temperance"},
	{Code: "major_15_the_devil", Name: "The Devil"},
	{Code: "major_16_the_tower", Name: "The Tower"},
	{Code: "major_17_the_star", Name: "The Star"},
	{Code: "major_18_the_moon", Name: "The Moon"},
	{Code: "major_19_the_sun", Name: "The Sun"},
	{Code: "major_20_judgement", Name: "Judgement"},
	{Code: "major_21_the_world", Name: "The World"},

	{Code: "minor_wands_ace", Name: "Ace of Wands"},
	{Code: "minor_wands_02", Name: "Two of Wands"},
	{Code: "minor_wands_03", Name: "Three of Wands"},
	{Code: "minor_wands_04", Name: "Four of Wands"},
	{Code: "minor_wands_05", Name: "Five of Wands"},
	{Code: "minor_wands_06", Name: "Six of Wands"},
	{Code: "minor_wands_07", Name: "Seven of Wands"},
	{Code: "minor_wands_08", Name: "Eight of Wands"},
	{Code: "minor_wands_09", Name: "Nine of Wands"},
	{Code: "minor_wands_10", Name: "Ten of Wands"},
	{Code: "minor_wands_page", Name: "Page of Wands"},
	{Code: "minor_wands_knight", Name: "Knight of Wands"},
	{Code: "minor_wands_queen", Name: "Queen of Wands"},
	{Code: "minor_wands_king", Name: "King of Wands"},

	{Code: "minor_cups_ace", Name: "Ace of Cups"},
	{Code: "minor_cups_02", Name: "Two of Cups"},
	{Code: "minor_cups_03", Name: "Three of Cups"},
	{Code: "minor_cups_04", Name: "Four of Cups"},
	{Code: "minor_cups_05", Name: "Five of Cups"},
	{Code: "minor_cups_06", Name: "Six of Cups"},
	{Code: "minor_cups_07", Name: "Seven of Cups"},
	{Code: "minor_cups_08", Name: "Eight of Cups"},
	{Code: "minor_cups_09", Name: "Nine of Cups"},
	{Code: "minor_cups_10", Name: "Ten of Cups"},
	{Code: "minor_cups_page", Name: "Page of Cups"},
	{Code: "minor_cups_knight", Name: "Knight of Cups"},
	{Code: "minor_cups_queen", Name: "Queen of Cups"},
	{Code: "minor_cups_king", Name: "King of Cups"},

	{Code: "minor_swords_ace", Name: "Ace of Swords"},
	{Code: "minor_swords_02", Name: "Two of Swords"},
	{Code: "minor_swords_03", Name: "Three of Swords"},
	{Code: "minor_swords_04", Name: "Four of Swords"},
	{Code: "minor_swords_05", Name: "Five of Swords"},
	{Code: "minor_swords_06", Name: "Six of Swords"},
	{Code: "minor_swords_07", Name: "Seven of Swords"},
	{Code: "minor_swords_08", Name: "Eight of Swords"},
	{Code: "minor_swords_09", Name: "Nine of Swords"},
	{Code: "minor_swords_10", Name: "Ten of Swords"},
	{Code: "minor_swords_page", Name: "Page of Swords"},
	{Code: "minor_swords_knight", Name: "Knight of Swords"},
	{Code: "minor_swords_queen", Name: "Queen of Swords"},
	{Code: "minor_swords_king", Name: "King of Swords"},

	{Code: "minor_pentacles_ace", Name: "Ace of Pentacles"},
	{Code: "minor_pentacles_02", Name: "Two of Pentacles"},
	{Code: "minor_pentacles_03", Name: "Three of Pentacles"},
	{Code: "minor_pentacles_04", Name: "Four of Pentacles"},
	{Code: "minor_pentacles_05", Name: "Five of Pentacles"},
	{Code: "minor_pentacles_06", Name: "Six of Pentacles"},
	{Code: "minor_pentacles_07", Name: "Seven of Pentacles"},
	{Code: "minor_pentacles_08", Name: "Eight of Pentacles"},
	{Code: "minor_pentacles_09", Name: "Nine of Pentacles"},
	{Code: "minor_pentacles_10", Name: "Ten of Pentacles"},
	{Code: "minor_pentacles_page", Name: "Page of Pentacles"},
	{Code: "minor_pentacles_knight", Name: "Knight of Pentacles"},
	{Code: "minor_pentacles_queen", Name: "Queen of Pentacles"},
	{Code: "minor_pentacles_king", Name: "King of Pentacles"},
}
