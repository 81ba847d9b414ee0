// fixtures.go - Small FIX data dictionaries shared by package tests
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FIX44Dictionary is a trimmed FIX.4.4 dictionary with a nested repeating
// group reached through two levels of components.
const FIX44Dictionary = `<?xml version="1.0" encoding="UTF-8"?>
<fix major="4" type="FIX" servicepack="0" minor="4">
  <header>
    <field name="BeginString" required="Y"/>
    <field name="BodyLength" required="Y"/>
    <field name="MsgType" required="Y"/>
    <field name="SenderCompID" required="Y"/>
    <field name="TargetCompID" required="Y"/>
    <field name="MsgSeqNum" required="Y"/>
    <field name="SendingTime" required="Y"/>
    <group name="NoHops" required="N">
      <field name="HopCompID" required="N"/>
      <field name="HopSendingTime" required="N"/>
    </group>
  </header>
  <trailer>
    <field name="CheckSum" required="Y"/>
  </trailer>
  <messages>
    <message name="UserRequest" msgtype="BE" msgcat="app">
      <field name="UserRequestID" required="Y"/>
      <field name="UserRequestType" required="Y"/>
      <field name="Username" required="Y"/>
      <field name="Password" required="N"/>
    </message>
    <message name="NewOrderSingle" msgtype="D" msgcat="app">
      <field name="ClOrdID" required="Y"/>
      <component name="Parties" required="N"/>
      <component name="Instrument" required="Y"/>
      <field name="Side" required="Y"/>
      <field name="OrderQty" required="N"/>
      <field name="OrdType" required="Y"/>
      <field name="Text" required="N"/>
    </message>
  </messages>
  <components>
    <component name="Parties">
      <group name="NoPartyIDs" required="N">
        <field name="PartyID" required="N"/>
        <field name="PartyIDSource" required="N"/>
        <field name="PartyRole" required="N"/>
        <component name="PtysSubGrp" required="N"/>
      </group>
    </component>
    <component name="PtysSubGrp">
      <group name="NoPartySubIDs" required="N">
        <field name="PartySubID" required="N"/>
        <field name="PartySubIDType" required="N"/>
      </group>
    </component>
    <component name="Instrument">
      <field name="Symbol" required="N"/>
    </component>
  </components>
  <fields>
    <field number="8" name="BeginString" type="STRING"/>
    <field number="9" name="BodyLength" type="LENGTH"/>
    <field number="10" name="CheckSum" type="STRING"/>
    <field number="11" name="ClOrdID" type="STRING"/>
    <field number="34" name="MsgSeqNum" type="SEQNUM"/>
    <field number="35" name="MsgType" type="STRING">
      <value enum="D" description="ORDER_SINGLE"/>
      <value enum="BE" description="USER_REQUEST"/>
    </field>
    <field number="38" name="OrderQty" type="QTY"/>
    <field number="40" name="OrdType" type="CHAR">
      <value enum="1" description="MARKET"/>
      <value enum="2" description="LIMIT"/>
    </field>
    <field number="49" name="SenderCompID" type="STRING"/>
    <field number="52" name="SendingTime" type="UTCTIMESTAMP"/>
    <field number="54" name="Side" type="CHAR">
      <value enum="1" description="BUY"/>
      <value enum="2" description="SELL"/>
    </field>
    <field number="55" name="Symbol" type="STRING"/>
    <field number="56" name="TargetCompID" type="STRING"/>
    <field number="58" name="Text" type="STRING"/>
    <field number="447" name="PartyIDSource" type="CHAR">
      <value enum="D" description="PROPRIETARY_CUSTOM_CODE"/>
    </field>
    <field number="448" name="PartyID" type="STRING"/>
    <field number="452" name="PartyRole" type="INT">
      <value enum="1" description="EXECUTING_FIRM"/>
      <value enum="3" description="CLIENT_ID"/>
    </field>
    <field number="453" name="NoPartyIDs" type="NUMINGROUP"/>
    <field number="523" name="PartySubID" type="STRING"/>
    <field number="553" name="Username" type="STRING"/>
    <field number="554" name="Password" type="STRING"/>
    <field number="627" name="NoHops" type="NUMINGROUP"/>
    <field number="628" name="HopCompID" type="STRING"/>
    <field number="629" name="HopSendingTime" type="UTCTIMESTAMP"/>
    <field number="802" name="NoPartySubIDs" type="NUMINGROUP"/>
    <field number="803" name="PartySubIDType" type="INT"/>
    <field number="923" name="UserRequestID" type="STRING"/>
    <field number="924" name="UserRequestType" type="INT">
      <value enum="1" description="LOG_ON_USER"/>
      <value enum="2" description="LOG_OFF_USER"/>
    </field>
  </fields>
</fix>
`

// FIXT11Dictionary is a trimmed FIXT.1.1 session dictionary.
const FIXT11Dictionary = `<?xml version="1.0" encoding="UTF-8"?>
<fix major="1" type="FIXT" servicepack="0" minor="1">
  <header>
    <field name="BeginString" required="Y"/>
    <field name="BodyLength" required="Y"/>
    <field name="MsgType" required="Y"/>
    <field name="ApplVerID" required="N"/>
    <field name="SenderCompID" required="Y"/>
    <field name="TargetCompID" required="Y"/>
    <field name="MsgSeqNum" required="Y"/>
    <field name="SendingTime" required="Y"/>
  </header>
  <trailer>
    <field name="CheckSum" required="Y"/>
  </trailer>
  <messages>
    <message name="Heartbeat" msgtype="0" msgcat="admin">
      <field name="TestReqID" required="N"/>
    </message>
  </messages>
  <components/>
  <fields>
    <field number="8" name="BeginString" type="STRING"/>
    <field number="9" name="BodyLength" type="LENGTH"/>
    <field number="10" name="CheckSum" type="STRING"/>
    <field number="34" name="MsgSeqNum" type="SEQNUM"/>
    <field number="35" name="MsgType" type="STRING">
      <value enum="0" description="HEARTBEAT"/>
    </field>
    <field number="49" name="SenderCompID" type="STRING"/>
    <field number="52" name="SendingTime" type="UTCTIMESTAMP"/>
    <field number="56" name="TargetCompID" type="STRING"/>
    <field number="112" name="TestReqID" type="STRING"/>
    <field number="1128" name="ApplVerID" type="STRING">
      <value enum="9" description="FIX50SP2"/>
    </field>
  </fields>
</fix>
`

// FIX50SP2Dictionary is a trimmed FIX.5.0SP2 application dictionary.
const FIX50SP2Dictionary = `<?xml version="1.0" encoding="UTF-8"?>
<fix major="5" type="FIX" servicepack="2" minor="0">
  <header/>
  <trailer/>
  <messages>
    <message name="NewOrderSingle" msgtype="D" msgcat="app">
      <field name="ClOrdID" required="Y"/>
      <field name="Symbol" required="N"/>
      <field name="Side" required="Y"/>
    </message>
  </messages>
  <components/>
  <fields>
    <field number="11" name="ClOrdID" type="STRING"/>
    <field number="35" name="MsgType" type="STRING">
      <value enum="D" description="NewOrderSingle"/>
    </field>
    <field number="54" name="Side" type="CHAR">
      <value enum="1" description="Buy"/>
      <value enum="2" description="Sell"/>
    </field>
    <field number="55" name="Symbol" type="STRING"/>
  </fields>
</fix>
`

// CyclicDictionary has two components that reference each other.
const CyclicDictionary = `<?xml version="1.0" encoding="UTF-8"?>
<fix major="4" type="FIX" servicepack="0" minor="4">
  <header><field name="MsgType" required="Y"/></header>
  <trailer/>
  <messages>
    <message name="Loop" msgtype="L" msgcat="app">
      <component name="A" required="N"/>
    </message>
  </messages>
  <components>
    <component name="A">
      <field name="Text" required="N"/>
      <component name="B" required="N"/>
    </component>
    <component name="B">
      <component name="A" required="N"/>
    </component>
  </components>
  <fields>
    <field number="35" name="MsgType" type="STRING"/>
    <field number="58" name="Text" type="STRING"/>
  </fields>
</fix>
`

// WriteDictionary writes content to dir/name and returns the path.
func WriteDictionary(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing dictionary %s: %v", name, err)
	}
	return path
}

// WriteStandardDictionaries writes the FIX44, FIXT11 and FIX50SP2 fixtures
// into a new temp directory using the default catalog file names.
func WriteStandardDictionaries(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	WriteDictionary(t, dir, "FIX44.xml", FIX44Dictionary)
	WriteDictionary(t, dir, "FIXT11.xml", FIXT11Dictionary)
	WriteDictionary(t, dir, "FIX50SP2.xml", FIX50SP2Dictionary)
	return dir
}
