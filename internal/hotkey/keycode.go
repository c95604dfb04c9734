package hotkey

import (
	"sort"

	"github.com/verte-zerg/runtally/internal/combo"
)

// Key codes use the Linux input-event numbering on every platform. The
// Windows listener translates virtual-key codes into this space before
// events reach the matcher.
const (
	codeKEYEsc        uint16 = 1
	codeKEY1          uint16 = 2
	codeKEY2          uint16 = 3
	codeKEY3          uint16 = 4
	codeKEY4          uint16 = 5
	codeKEY5          uint16 = 6
	codeKEY6          uint16 = 7
	codeKEY7          uint16 = 8
	codeKEY8          uint16 = 9
	codeKEY9          uint16 = 10
	codeKEY0          uint16 = 11
	codeKEYMinus      uint16 = 12
	codeKEYEqual      uint16 = 13
	codeKEYBackspace  uint16 = 14
	codeKEYTab        uint16 = 15
	codeKEYQ          uint16 = 16
	codeKEYW          uint16 = 17
	codeKEYE          uint16 = 18
	codeKEYR          uint16 = 19
	codeKEYT          uint16 = 20
	codeKEYY          uint16 = 21
	codeKEYU          uint16 = 22
	codeKEYI          uint16 = 23
	codeKEYO          uint16 = 24
	codeKEYP          uint16 = 25
	codeKEYLeftBrace  uint16 = 26
	codeKEYRightBrace uint16 = 27
	codeKEYEnter      uint16 = 28
	codeKEYLeftCtrl   uint16 = 29
	codeKEYA          uint16 = 30
	codeKEYS          uint16 = 31
	codeKEYD          uint16 = 32
	codeKEYF          uint16 = 33
	codeKEYG          uint16 = 34
	codeKEYH          uint16 = 35
	codeKEYJ          uint16 = 36
	codeKEYK          uint16 = 37
	codeKEYL          uint16 = 38
	codeKEYSemicolon  uint16 = 39
	codeKEYApostrophe uint16 = 40
	codeKEYGrave      uint16 = 41
	codeKEYLeftShift  uint16 = 42
	codeKEYBackslash  uint16 = 43
	codeKEYZ          uint16 = 44
	codeKEYX          uint16 = 45
	codeKEYC          uint16 = 46
	codeKEYV          uint16 = 47
	codeKEYB          uint16 = 48
	codeKEYN          uint16 = 49
	codeKEYM          uint16 = 50
	codeKEYComma      uint16 = 51
	codeKEYDot        uint16 = 52
	codeKEYSlash      uint16 = 53
	codeKEYRightShift uint16 = 54
	codeKEYKPAsterisk uint16 = 55
	codeKEYLeftAlt    uint16 = 56
	codeKEYSpace      uint16 = 57
	codeKEYCapsLock   uint16 = 58
	codeKEYF1         uint16 = 59
	codeKEYF2         uint16 = 60
	codeKEYF3         uint16 = 61
	codeKEYF4         uint16 = 62
	codeKEYF5         uint16 = 63
	codeKEYF6         uint16 = 64
	codeKEYF7         uint16 = 65
	codeKEYF8         uint16 = 66
	codeKEYF9         uint16 = 67
	codeKEYF10        uint16 = 68
	codeKEYKP7        uint16 = 71
	codeKEYKP8        uint16 = 72
	codeKEYKP9        uint16 = 73
	codeKEYKPMinus    uint16 = 74
	codeKEYKP4        uint16 = 75
	codeKEYKP5        uint16 = 76
	codeKEYKP6        uint16 = 77
	codeKEYKPPlus     uint16 = 78
	codeKEYKP1        uint16 = 79
	codeKEYKP2        uint16 = 80
	codeKEYKP3        uint16 = 81
	codeKEYKP0        uint16 = 82
	codeKEYKPDot      uint16 = 83
	codeKEYF11        uint16 = 87
	codeKEYF12        uint16 = 88
	codeKEYKPEnter    uint16 = 96
	codeKEYRightCtrl  uint16 = 97
	codeKEYKPSlash    uint16 = 98
	codeKEYRightAlt   uint16 = 100
	codeKEYHome       uint16 = 102
	codeKEYUp         uint16 = 103
	codeKEYPageUp     uint16 = 104
	codeKEYLeft       uint16 = 105
	codeKEYRight      uint16 = 106
	codeKEYEnd        uint16 = 107
	codeKEYDown       uint16 = 108
	codeKEYPageDown   uint16 = 109
	codeKEYInsert     uint16 = 110
	codeKEYDelete     uint16 = 111
	codeKEYLeftMeta   uint16 = 125
	codeKEYRightMeta  uint16 = 126
	codeKEYF13        uint16 = 183
	codeKEYF14        uint16 = 184
	codeKEYF15        uint16 = 185
	codeKEYF16        uint16 = 186
	codeKEYF17        uint16 = 187
	codeKEYF18        uint16 = 188
	codeKEYF19        uint16 = 189
	codeKEYF20        uint16 = 190
	codeKEYF21        uint16 = 191
	codeKEYF22        uint16 = 192
	codeKEYF23        uint16 = 193
	codeKEYF24        uint16 = 194
)

const (
	vkBACK      uint32 = 0x08
	vkTAB       uint32 = 0x09
	vkRETURN    uint32 = 0x0D
	vkSHIFT     uint32 = 0x10
	vkCONTROL   uint32 = 0x11
	vkMENU      uint32 = 0x12
	vkCAPITAL   uint32 = 0x14
	vkESCAPE    uint32 = 0x1B
	vkSPACE     uint32 = 0x20
	vkPRIOR     uint32 = 0x21
	vkNEXT      uint32 = 0x22
	vkEND       uint32 = 0x23
	vkHOME      uint32 = 0x24
	vkLEFT      uint32 = 0x25
	vkUP        uint32 = 0x26
	vkRIGHT     uint32 = 0x27
	vkDOWN      uint32 = 0x28
	vkINSERT    uint32 = 0x2D
	vkDELETE    uint32 = 0x2E
	vk0         uint32 = 0x30
	vk1         uint32 = 0x31
	vk2         uint32 = 0x32
	vk3         uint32 = 0x33
	vk4         uint32 = 0x34
	vk5         uint32 = 0x35
	vk6         uint32 = 0x36
	vk7         uint32 = 0x37
	vk8         uint32 = 0x38
	vk9         uint32 = 0x39
	vkA         uint32 = 0x41
	vkB         uint32 = 0x42
	vkC         uint32 = 0x43
	vkD         uint32 = 0x44
	vkE         uint32 = 0x45
	vkF         uint32 = 0x46
	vkG         uint32 = 0x47
	vkH         uint32 = 0x48
	vkI         uint32 = 0x49
	vkJ         uint32 = 0x4A
	vkK         uint32 = 0x4B
	vkL         uint32 = 0x4C
	vkM         uint32 = 0x4D
	vkN         uint32 = 0x4E
	vkO         uint32 = 0x4F
	vkP         uint32 = 0x50
	vkQ         uint32 = 0x51
	vkR         uint32 = 0x52
	vkS         uint32 = 0x53
	vkT         uint32 = 0x54
	vkU         uint32 = 0x55
	vkV         uint32 = 0x56
	vkW         uint32 = 0x57
	vkX         uint32 = 0x58
	vkY         uint32 = 0x59
	vkZ         uint32 = 0x5A
	vkLWIN      uint32 = 0x5B
	vkRWIN      uint32 = 0x5C
	vkNUMPAD0   uint32 = 0x60
	vkNUMPAD1   uint32 = 0x61
	vkNUMPAD2   uint32 = 0x62
	vkNUMPAD3   uint32 = 0x63
	vkNUMPAD4   uint32 = 0x64
	vkNUMPAD5   uint32 = 0x65
	vkNUMPAD6   uint32 = 0x66
	vkNUMPAD7   uint32 = 0x67
	vkNUMPAD8   uint32 = 0x68
	vkNUMPAD9   uint32 = 0x69
	vkMULTIPLY  uint32 = 0x6A
	vkADD       uint32 = 0x6B
	vkSUBTRACT  uint32 = 0x6D
	vkDECIMAL   uint32 = 0x6E
	vkDIVIDE    uint32 = 0x6F
	vkF1        uint32 = 0x70
	vkF2        uint32 = 0x71
	vkF3        uint32 = 0x72
	vkF4        uint32 = 0x73
	vkF5        uint32 = 0x74
	vkF6        uint32 = 0x75
	vkF7        uint32 = 0x76
	vkF8        uint32 = 0x77
	vkF9        uint32 = 0x78
	vkF10       uint32 = 0x79
	vkF11       uint32 = 0x7A
	vkF12       uint32 = 0x7B
	vkF13       uint32 = 0x7C
	vkF14       uint32 = 0x7D
	vkF15       uint32 = 0x7E
	vkF16       uint32 = 0x7F
	vkF17       uint32 = 0x80
	vkF18       uint32 = 0x81
	vkF19       uint32 = 0x82
	vkF20       uint32 = 0x83
	vkF21       uint32 = 0x84
	vkF22       uint32 = 0x85
	vkF23       uint32 = 0x86
	vkF24       uint32 = 0x87
	vkLSHIFT    uint32 = 0xA0
	vkRSHIFT    uint32 = 0xA1
	vkLCONTROL  uint32 = 0xA2
	vkRCONTROL  uint32 = 0xA3
	vkLMENU     uint32 = 0xA4
	vkRMENU     uint32 = 0xA5
	vkOEM1      uint32 = 0xBA
	vkOEMPLUS   uint32 = 0xBB
	vkOEMCOMMA  uint32 = 0xBC
	vkOEMMINUS  uint32 = 0xBD
	vkOEMPERIOD uint32 = 0xBE
	vkOEM2      uint32 = 0xBF
	vkOEM3      uint32 = 0xC0
	vkOEM4      uint32 = 0xDB
	vkOEM5      uint32 = 0xDC
	vkOEM6      uint32 = 0xDD
	vkOEM7      uint32 = 0xDE
)

const llkhfExtended = 0x01

// codeToToken maps key codes to combo key tokens. Printable keys use
// their character, keypad keys collapse onto the main-row equivalent,
// and the rest use the lowercase names the combo parser expects.
var codeToToken = map[uint16]string{
	codeKEYEsc:        "esc",
	codeKEY1:          "1",
	codeKEY2:          "2",
	codeKEY3:          "3",
	codeKEY4:          "4",
	codeKEY5:          "5",
	codeKEY6:          "6",
	codeKEY7:          "7",
	codeKEY8:          "8",
	codeKEY9:          "9",
	codeKEY0:          "0",
	codeKEYMinus:      "-",
	codeKEYEqual:      "=",
	codeKEYBackspace:  "backspace",
	codeKEYTab:        "tab",
	codeKEYQ:          "q",
	codeKEYW:          "w",
	codeKEYE:          "e",
	codeKEYR:          "r",
	codeKEYT:          "t",
	codeKEYY:          "y",
	codeKEYU:          "u",
	codeKEYI:          "i",
	codeKEYO:          "o",
	codeKEYP:          "p",
	codeKEYLeftBrace:  "[",
	codeKEYRightBrace: "]",
	codeKEYEnter:      "enter",
	codeKEYA:          "a",
	codeKEYS:          "s",
	codeKEYD:          "d",
	codeKEYF:          "f",
	codeKEYG:          "g",
	codeKEYH:          "h",
	codeKEYJ:          "j",
	codeKEYK:          "k",
	codeKEYL:          "l",
	codeKEYSemicolon:  ";",
	codeKEYApostrophe: "'",
	codeKEYGrave:      "`",
	codeKEYBackslash:  "\\",
	codeKEYZ:          "z",
	codeKEYX:          "x",
	codeKEYC:          "c",
	codeKEYV:          "v",
	codeKEYB:          "b",
	codeKEYN:          "n",
	codeKEYM:          "m",
	codeKEYComma:      ",",
	codeKEYDot:        ".",
	codeKEYSlash:      "/",
	codeKEYKPAsterisk: "*",
	codeKEYSpace:      "space",
	codeKEYCapsLock:   "capslock",
	codeKEYF1:         "f1",
	codeKEYF2:         "f2",
	codeKEYF3:         "f3",
	codeKEYF4:         "f4",
	codeKEYF5:         "f5",
	codeKEYF6:         "f6",
	codeKEYF7:         "f7",
	codeKEYF8:         "f8",
	codeKEYF9:         "f9",
	codeKEYF10:        "f10",
	codeKEYKP7:        "7",
	codeKEYKP8:        "8",
	codeKEYKP9:        "9",
	codeKEYKPMinus:    "-",
	codeKEYKP4:        "4",
	codeKEYKP5:        "5",
	codeKEYKP6:        "6",
	codeKEYKPPlus:     "+",
	codeKEYKP1:        "1",
	codeKEYKP2:        "2",
	codeKEYKP3:        "3",
	codeKEYKP0:        "0",
	codeKEYKPDot:      ".",
	codeKEYF11:        "f11",
	codeKEYF12:        "f12",
	codeKEYKPEnter:    "enter",
	codeKEYKPSlash:    "/",
	codeKEYHome:       "home",
	codeKEYUp:         "up",
	codeKEYPageUp:     "pageup",
	codeKEYLeft:       "left",
	codeKEYRight:      "right",
	codeKEYEnd:        "end",
	codeKEYDown:       "down",
	codeKEYPageDown:   "pagedown",
	codeKEYInsert:     "insert",
	codeKEYDelete:     "delete",
	codeKEYF13:        "f13",
	codeKEYF14:        "f14",
	codeKEYF15:        "f15",
	codeKEYF16:        "f16",
	codeKEYF17:        "f17",
	codeKEYF18:        "f18",
	codeKEYF19:        "f19",
	codeKEYF20:        "f20",
	codeKEYF21:        "f21",
	codeKEYF22:        "f22",
	codeKEYF23:        "f23",
	codeKEYF24:        "f24",
}

var codeToVK = map[uint16]uint32{
	codeKEYEsc:        vkESCAPE,
	codeKEY1:          vk1,
	codeKEY2:          vk2,
	codeKEY3:          vk3,
	codeKEY4:          vk4,
	codeKEY5:          vk5,
	codeKEY6:          vk6,
	codeKEY7:          vk7,
	codeKEY8:          vk8,
	codeKEY9:          vk9,
	codeKEY0:          vk0,
	codeKEYMinus:      vkOEMMINUS,
	codeKEYEqual:      vkOEMPLUS,
	codeKEYBackspace:  vkBACK,
	codeKEYTab:        vkTAB,
	codeKEYQ:          vkQ,
	codeKEYW:          vkW,
	codeKEYE:          vkE,
	codeKEYR:          vkR,
	codeKEYT:          vkT,
	codeKEYY:          vkY,
	codeKEYU:          vkU,
	codeKEYI:          vkI,
	codeKEYO:          vkO,
	codeKEYP:          vkP,
	codeKEYLeftBrace:  vkOEM4,
	codeKEYRightBrace: vkOEM6,
	codeKEYEnter:      vkRETURN,
	codeKEYLeftCtrl:   vkLCONTROL,
	codeKEYA:          vkA,
	codeKEYS:          vkS,
	codeKEYD:          vkD,
	codeKEYF:          vkF,
	codeKEYG:          vkG,
	codeKEYH:          vkH,
	codeKEYJ:          vkJ,
	codeKEYK:          vkK,
	codeKEYL:          vkL,
	codeKEYSemicolon:  vkOEM1,
	codeKEYApostrophe: vkOEM7,
	codeKEYGrave:      vkOEM3,
	codeKEYLeftShift:  vkLSHIFT,
	codeKEYBackslash:  vkOEM5,
	codeKEYZ:          vkZ,
	codeKEYX:          vkX,
	codeKEYC:          vkC,
	codeKEYV:          vkV,
	codeKEYB:          vkB,
	codeKEYN:          vkN,
	codeKEYM:          vkM,
	codeKEYComma:      vkOEMCOMMA,
	codeKEYDot:        vkOEMPERIOD,
	codeKEYSlash:      vkOEM2,
	codeKEYRightShift: vkRSHIFT,
	codeKEYKPAsterisk: vkMULTIPLY,
	codeKEYLeftAlt:    vkLMENU,
	codeKEYSpace:      vkSPACE,
	codeKEYCapsLock:   vkCAPITAL,
	codeKEYF1:         vkF1,
	codeKEYF2:         vkF2,
	codeKEYF3:         vkF3,
	codeKEYF4:         vkF4,
	codeKEYF5:         vkF5,
	codeKEYF6:         vkF6,
	codeKEYF7:         vkF7,
	codeKEYF8:         vkF8,
	codeKEYF9:         vkF9,
	codeKEYF10:        vkF10,
	codeKEYKP7:        vkNUMPAD7,
	codeKEYKP8:        vkNUMPAD8,
	codeKEYKP9:        vkNUMPAD9,
	codeKEYKPMinus:    vkSUBTRACT,
	codeKEYKP4:        vkNUMPAD4,
	codeKEYKP5:        vkNUMPAD5,
	codeKEYKP6:        vkNUMPAD6,
	codeKEYKPPlus:     vkADD,
	codeKEYKP1:        vkNUMPAD1,
	codeKEYKP2:        vkNUMPAD2,
	codeKEYKP3:        vkNUMPAD3,
	codeKEYKP0:        vkNUMPAD0,
	codeKEYKPDot:      vkDECIMAL,
	codeKEYF11:        vkF11,
	codeKEYF12:        vkF12,
	codeKEYKPEnter:    vkRETURN,
	codeKEYRightCtrl:  vkRCONTROL,
	codeKEYKPSlash:    vkDIVIDE,
	codeKEYRightAlt:   vkRMENU,
	codeKEYHome:       vkHOME,
	codeKEYUp:         vkUP,
	codeKEYPageUp:     vkPRIOR,
	codeKEYLeft:       vkLEFT,
	codeKEYRight:      vkRIGHT,
	codeKEYEnd:        vkEND,
	codeKEYDown:       vkDOWN,
	codeKEYPageDown:   vkNEXT,
	codeKEYInsert:     vkINSERT,
	codeKEYDelete:     vkDELETE,
	codeKEYLeftMeta:   vkLWIN,
	codeKEYRightMeta:  vkRWIN,
	codeKEYF13:        vkF13,
	codeKEYF14:        vkF14,
	codeKEYF15:        vkF15,
	codeKEYF16:        vkF16,
	codeKEYF17:        vkF17,
	codeKEYF18:        vkF18,
	codeKEYF19:        vkF19,
	codeKEYF20:        vkF20,
	codeKEYF21:        vkF21,
	codeKEYF22:        vkF22,
	codeKEYF23:        vkF23,
	codeKEYF24:        vkF24,
}

var vkToCode map[uint32]uint16

func init() {
	codes := make([]uint16, 0, len(codeToVK))
	for code := range codeToVK {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	// Lowest code wins when two codes share a virtual key, so plain Enter
	// beats the keypad variant. codeFromVK disambiguates via flags.
	vkToCode = make(map[uint32]uint16, len(codes))
	for _, code := range codes {
		vk := codeToVK[code]
		if _, exists := vkToCode[vk]; exists {
			continue
		}
		vkToCode[vk] = code
	}
}

// modifierForCode maps a key code to its combo modifier bit, or 0 when
// the code is not a modifier.
func modifierForCode(code uint16) combo.Modifier {
	switch code {
	case codeKEYLeftCtrl, codeKEYRightCtrl:
		return combo.ModCtrl
	case codeKEYLeftShift, codeKEYRightShift:
		return combo.ModShift
	case codeKEYLeftAlt, codeKEYRightAlt:
		return combo.ModAlt
	case codeKEYLeftMeta, codeKEYRightMeta:
		return combo.ModCmd
	}
	return 0
}

// tokenForCode maps a key code to the combo key token it should match
// as. Unrecognized codes report false and never match a binding.
func tokenForCode(code uint16) (string, bool) {
	token, ok := codeToToken[code]
	return token, ok
}

// codeFromVK translates a Windows virtual-key code plus low-level hook
// flags into a key code. Generic modifier VKs and the extended-key flag
// pick the concrete left/right or keypad variant.
func codeFromVK(vk, flags uint32) (uint16, bool) {
	switch vk {
	case vkRETURN:
		if flags&llkhfExtended != 0 {
			return codeKEYKPEnter, true
		}
		return codeKEYEnter, true
	case vkSHIFT:
		return codeKEYLeftShift, true
	case vkCONTROL:
		if flags&llkhfExtended != 0 {
			return codeKEYRightCtrl, true
		}
		return codeKEYLeftCtrl, true
	case vkMENU:
		if flags&llkhfExtended != 0 {
			return codeKEYRightAlt, true
		}
		return codeKEYLeftAlt, true
	}

	code, ok := vkToCode[vk]
	if ok {
		return code, true
	}
	return 0, false
}
