package clusters

import (
	"fmt"

	"zcl-node/internal/zcl"
)

// Metering attribute sets; the set is the high byte of the attribute id.
const (
	MeteringSetReadingInfo        uint16 = 0x0000
	MeteringSetTOUInfo            uint16 = 0x0100
	MeteringSetMeterStatus        uint16 = 0x0200
	MeteringSetFormatting         uint16 = 0x0300
	MeteringSetHistorical         uint16 = 0x0400
	MeteringSetLoadProfile        uint16 = 0x0500
	MeteringSetSupplyLimit        uint16 = 0x0600
	MeteringSetBlockDelivered     uint16 = 0x0700
	MeteringSetAlarms             uint16 = 0x0800
	MeteringSetBlockReceived      uint16 = 0x0900
	MeteringSetBilling            uint16 = 0x0A00
	MeteringSetSupplyControl      uint16 = 0x0B00
	MeteringSetAlternativeHistory uint16 = 0x0C00
	MeteringSetFourQuadrant       uint16 = 0x0D00
)

const (
	MeteringCurrentSummationDelivered uint16 = 0x0000
	MeteringStatus                    uint16 = 0x0200
	MeteringUnitOfMeasure             uint16 = 0x0300
	MeteringMultiplier                uint16 = 0x0301
	MeteringDivisor                   uint16 = 0x0302
	MeteringInstantaneousDemand       uint16 = 0x0400

	// MeteringTiers is the number of CurrentTierN summation pairs.
	MeteringTiers = 48
	// Block tables cover "no tier" plus tiers 1..15, 16 blocks each.
	BlockTiers = 16
	Blocks     = 16
)

// TierBlockAttr returns the id of a per tier, per block attribute: tier 0 is
// "no tier" and block 0 is block 1. Metering block summations and Price
// block prices and thresholds are numbered this way.
func TierBlockAttr(set uint16, tier, block int) uint16 {
	return set + uint16(tier)*16 + uint16(block)
}

// MeteringTierAttr returns the CurrentTierNSummation id; tier counts from 1.
func MeteringTierAttr(tier int, received bool) uint16 {
	id := MeteringSetTOUInfo + uint16(tier-1)*2
	if received {
		id++
	}
	return id
}

func u48(access zcl.Access, id uint16, name string, opts ...attrOption) zcl.AttributeDef {
	return attr(id, name, zcl.TypeUint48, access, opts...)
}

func readingInfo() []zcl.AttributeDef {
	r := zcl.AccessRead
	return []zcl.AttributeDef{
		u48(zcl.AccessRP, MeteringCurrentSummationDelivered, "CurrentSummationDelivered", report(1, 300, zcl.U48(1))),
		u48(r, 0x0001, "CurrentSummationReceived"),
		u48(r, 0x0002, "CurrentMaxDemandDelivered"),
		u48(r, 0x0003, "CurrentMaxDemandReceived"),
		u48(r, 0x0004, "DFTSummation"),
		attr(0x0005, "DailyFreezeTime", zcl.TypeUint16, r, bounds(zcl.U16(0), zcl.U16(0x183C))),
		attr(0x0006, "PowerFactor", zcl.TypeInt8, r, bounds(zcl.S8(-100), zcl.S8(100))),
		attr(0x0007, "ReadingSnapshotTime", zcl.TypeUTC, r),
		attr(0x0008, "CurrentMaxDemandDeliveredTime", zcl.TypeUTC, r),
		attr(0x0009, "CurrentMaxDemandReceivedTime", zcl.TypeUTC, r),
		attr(0x000A, "DefaultUpdatePeriod", zcl.TypeUint8, r, def(zcl.U8(0x1E))),
		attr(0x000B, "FastPollUpdatePeriod", zcl.TypeUint8, r, def(zcl.U8(0x05))),
		u48(r, 0x000C, "CurrentBlockPeriodConsumptionDelivered"),
		attr(0x000D, "DailyConsumptionTarget", zcl.TypeUint24, r),
		attr(0x000E, "CurrentBlock", zcl.TypeEnum8, r, bounds(zcl.E8(0), zcl.E8(0x10))),
		attr(0x000F, "ProfileIntervalPeriod", zcl.TypeEnum8, r),
		// 0x0010 is deprecated
		attr(0x0011, "PresetReadingTime", zcl.TypeUint16, r),
		attr(0x0012, "SummationDeliveredPerReport", zcl.TypeUint16, r),
		attr(0x0013, "FlowRestriction", zcl.TypeUint8, r),
		attr(0x0014, "SupplyStatus", zcl.TypeEnum8, r, bounds(zcl.E8(0), zcl.E8(2))),
		u48(r, 0x0015, "CurrentInletEnergyCarrierSummation"),
		u48(r, 0x0016, "CurrentOutletEnergyCarrierSummation"),
		attr(0x0017, "InletTemperature", zcl.TypeInt24, r),
		attr(0x0018, "OutletTemperature", zcl.TypeInt24, r),
		attr(0x0019, "ControlTemperature", zcl.TypeInt24, r),
		attr(0x001A, "CurrentInletEnergyCarrierDemand", zcl.TypeInt24, r),
		attr(0x001B, "CurrentOutletEnergyCarrierDemand", zcl.TypeInt24, r),
		u48(r, 0x001C, "PreviousBlockPeriodConsumptionDelivered"),
		u48(r, 0x001D, "CurrentBlockPeriodConsumptionReceived"),
		attr(0x001E, "CurrentBlockReceived", zcl.TypeEnum8, r),
		u48(r, 0x001F, "DFTSummationReceived"),
		attr(0x0020, "ActiveRegisterTierDelivered", zcl.TypeEnum8, r),
		attr(0x0021, "ActiveRegisterTierReceived", zcl.TypeEnum8, r),
		attr(0x0022, "LastBlockSwitchTime", zcl.TypeUTC, r),
		attr(0x0023, "NumberOfTiersInUse", zcl.TypeUint8, r),
	}
}

func touInfo() []zcl.AttributeDef {
	var a []zcl.AttributeDef
	for t := 1; t <= MeteringTiers; t++ {
		a = append(a,
			u48(zcl.AccessRead, MeteringTierAttr(t, false), fmt.Sprintf("CurrentTier%dSummationDelivered", t)),
			u48(zcl.AccessRead, MeteringTierAttr(t, true), fmt.Sprintf("CurrentTier%dSummationReceived", t)),
		)
	}
	return append(a,
		u48(zcl.AccessRead, MeteringSetTOUInfo+0xFC, "CPP1SummationDelivered"),
		u48(zcl.AccessRead, MeteringSetTOUInfo+0xFE, "CPP2SummationDelivered"),
	)
}

// blockInfo generates the block summation table of one direction.
func blockInfo(set uint16, dir string) []zcl.AttributeDef {
	a := make([]zcl.AttributeDef, 0, BlockTiers*Blocks)
	for t := 0; t < BlockTiers; t++ {
		tier := "NoTier"
		if t > 0 {
			tier = fmt.Sprintf("Tier%d", t)
		}
		for b := 0; b < Blocks; b++ {
			name := fmt.Sprintf("Current%sBlock%dSummation%s", tier, b+1, dir)
			a = append(a, u48(zcl.AccessRead, TierBlockAttr(set, t, b), name))
		}
	}
	return a
}

func meterStatus() []zcl.AttributeDef {
	r := zcl.AccessRead
	return []zcl.AttributeDef{
		attr(MeteringStatus, "Status", zcl.TypeBitmap8, zcl.AccessRP),
		attr(0x0201, "RemainingBatteryLife", zcl.TypeUint8, r),
		attr(0x0202, "HoursInOperation", zcl.TypeUint24, r),
		attr(0x0203, "HoursInFault", zcl.TypeUint24, r),
		attr(0x0204, "ExtendedStatus", zcl.TypeBitmap64, r),
		attr(0x0205, "RemainingBatteryLifeInDays", zcl.TypeUint16, r),
		attr(0x0206, "CurrentMeterID", zcl.TypeOctetStr, r),
		attr(0x0207, "AmbientConsumptionIndicator", zcl.TypeEnum8, r),
		attr(0x0208, "ServiceDisconnectReason", zcl.TypeEnum8, r),
		attr(0x0209, "LinkyModeOfOperation", zcl.TypeBitmap8, r),
	}
}

func formatting() []zcl.AttributeDef {
	r := zcl.AccessRead
	return []zcl.AttributeDef{
		attr(MeteringUnitOfMeasure, "UnitOfMeasure", zcl.TypeEnum8, r),
		attr(MeteringMultiplier, "Multiplier", zcl.TypeUint24, r, def(zcl.U24(1))),
		attr(MeteringDivisor, "Divisor", zcl.TypeUint24, r, def(zcl.U24(1))),
		attr(0x0303, "SummationFormatting", zcl.TypeBitmap8, r),
		attr(0x0304, "DemandFormatting", zcl.TypeBitmap8, r),
		attr(0x0305, "HistoricalConsumptionFormatting", zcl.TypeBitmap8, r),
		attr(0x0306, "MeteringDeviceType", zcl.TypeBitmap8, r),
		attr(0x0307, "SiteID", zcl.TypeOctetStr, r),
		attr(0x0308, "MeterSerialNumber", zcl.TypeOctetStr, r),
		attr(0x0309, "EnergyCarrierUnitOfMeasure", zcl.TypeEnum8, r),
		attr(0x030A, "EnergyCarrierSummationFormatting", zcl.TypeBitmap8, r),
		attr(0x030B, "EnergyCarrierDemandFormatting", zcl.TypeBitmap8, r),
		attr(0x030C, "TemperatureUnitOfMeasure", zcl.TypeEnum8, r),
		attr(0x030D, "TemperatureFormatting", zcl.TypeBitmap8, r),
		attr(0x030E, "ModuleSerialNumber", zcl.TypeOctetStr, r),
		attr(0x030F, "OperatingTariffLabelDelivered", zcl.TypeOctetStr, r),
		attr(0x0310, "OperatingTariffLabelReceived", zcl.TypeOctetStr, r),
		attr(0x0311, "CustomerIDNumber", zcl.TypeOctetStr, r),
		attr(0x0312, "AlternativeUnitOfMeasure", zcl.TypeEnum8, r),
		attr(0x0313, "AlternativeDemandFormatting", zcl.TypeBitmap8, r),
		attr(0x0314, "AlternativeConsumptionFormatting", zcl.TypeBitmap8, r),
	}
}

// history builds a historical consumption set. The alternative set at 0x0Cxx
// mirrors the main one with an "Alt" infix.
func history(set uint16, infix string) []zcl.AttributeDef {
	r := zcl.AccessRead
	n := func(s string) string { return fmt.Sprintf(s, infix) }
	a := []zcl.AttributeDef{
		attr(set+0x00, n("%sInstantaneousDemand"), zcl.TypeInt24, zcl.AccessRP, report(1, 300, zcl.S24(1))),
		attr(set+0x01, n("CurrentDay%sConsumptionDelivered"), zcl.TypeUint24, r),
		attr(set+0x02, n("CurrentDay%sConsumptionReceived"), zcl.TypeUint24, r),
		attr(set+0x03, n("PreviousDay%sConsumptionDelivered"), zcl.TypeUint24, r),
		attr(set+0x04, n("PreviousDay%sConsumptionReceived"), zcl.TypeUint24, r),
		attr(set+0x05, n("Current%sPartialProfileIntervalStartTimeDelivered"), zcl.TypeUTC, r),
		attr(set+0x06, n("Current%sPartialProfileIntervalStartTimeReceived"), zcl.TypeUTC, r),
		attr(set+0x07, n("Current%sPartialProfileIntervalValueDelivered"), zcl.TypeUint24, r),
		attr(set+0x08, n("Current%sPartialProfileIntervalValueReceived"), zcl.TypeUint24, r),
		u48(r, set+0x09, n("CurrentDay%sMaxPressure")),
		u48(r, set+0x0A, n("CurrentDay%sMinPressure")),
		u48(r, set+0x0B, n("PreviousDay%sMaxPressure")),
		u48(r, set+0x0C, n("PreviousDay%sMinPressure")),
		attr(set+0x0D, n("CurrentDay%sMaxDemand"), zcl.TypeInt24, r),
		attr(set+0x0E, n("PreviousDay%sMaxDemand"), zcl.TypeInt24, r),
		attr(set+0x0F, n("CurrentMonth%sMaxDemand"), zcl.TypeInt24, r),
		attr(set+0x10, n("CurrentYear%sMaxDemand"), zcl.TypeInt24, r),
	}
	if infix == "" {
		a = append(a,
			attr(set+0x11, "CurrentDayMaxEnergyCarrierDemand", zcl.TypeInt24, r),
			attr(set+0x12, "PreviousDayMaxEnergyCarrierDemand", zcl.TypeInt24, r),
			attr(set+0x13, "CurrentMonthMaxEnergyCarrierDemand", zcl.TypeInt24, r),
			attr(set+0x14, "CurrentMonthMinEnergyCarrierDemand", zcl.TypeInt24, r),
			attr(set+0x15, "CurrentYearMaxEnergyCarrierDemand", zcl.TypeInt24, r),
			attr(set+0x16, "CurrentYearMinEnergyCarrierDemand", zcl.TypeInt24, r),
		)
	}
	pairs := func(base uint16, unit string, from, to int) {
		for i := from; i <= to; i++ {
			num := ""
			if i > 1 {
				num = fmt.Sprint(i)
			}
			id := base + uint16(i-from)*2
			a = append(a,
				attr(id, fmt.Sprintf("Previous%s%s%sConsumptionDelivered", unit, num, infix), zcl.TypeUint24, r),
				attr(id+1, fmt.Sprintf("Previous%s%s%sConsumptionReceived", unit, num, infix), zcl.TypeUint24, r),
			)
		}
	}
	pairs(set+0x20, "Day", 2, 8)
	a = append(a,
		attr(set+0x30, n("CurrentWeek%sConsumptionDelivered"), zcl.TypeUint24, r),
		attr(set+0x31, n("CurrentWeek%sConsumptionReceived"), zcl.TypeUint24, r),
	)
	pairs(set+0x32, "Week", 1, 5)
	a = append(a,
		attr(set+0x40, n("CurrentMonth%sConsumptionDelivered"), zcl.TypeUint32, r),
		attr(set+0x41, n("CurrentMonth%sConsumptionReceived"), zcl.TypeUint32, r),
	)
	for i := 1; i <= 13; i++ {
		num := ""
		if i > 1 {
			num = fmt.Sprint(i)
		}
		id := set + 0x42 + uint16(i-1)*2
		a = append(a,
			attr(id, fmt.Sprintf("PreviousMonth%s%sConsumptionDelivered", num, infix), zcl.TypeUint32, r),
			attr(id+1, fmt.Sprintf("PreviousMonth%s%sConsumptionReceived", num, infix), zcl.TypeUint32, r),
		)
	}
	if infix == "" {
		a = append(a,
			attr(set+0x5C, "HistoricalFreezeTime", zcl.TypeUint16, r),
			attr(set+0x5D, "CurrentDayMaxDemandDelivered", zcl.TypeUint32, r),
			attr(set+0x5E, "CurrentDayMaxDemandDeliveredTime", zcl.TypeUTC, r),
			attr(set+0x5F, "CurrentDayMaxDemandReceived", zcl.TypeUint32, r),
			attr(set+0x60, "CurrentDayMaxDemandReceivedTime", zcl.TypeUTC, r),
			attr(set+0x61, "PreviousDayMaxDemandDelivered", zcl.TypeUint32, r),
			attr(set+0x62, "PreviousDayMaxDemandDeliveredTime", zcl.TypeUTC, r),
			attr(set+0x63, "PreviousDayMaxDemandReceived", zcl.TypeUint32, r),
			attr(set+0x64, "PreviousDayMaxDemandReceivedTime", zcl.TypeUTC, r),
		)
	}
	return a
}

func meteringMisc() []zcl.AttributeDef {
	r := zcl.AccessRead
	return []zcl.AttributeDef{
		attr(MeteringSetLoadProfile+0x00, "MaxNumberOfPeriodsDelivered", zcl.TypeUint8, r, def(zcl.U8(0x18))),

		attr(MeteringSetSupplyLimit+0x00, "CurrentDemandDelivered", zcl.TypeUint24, r),
		attr(MeteringSetSupplyLimit+0x01, "DemandLimit", zcl.TypeUint24, r),
		attr(MeteringSetSupplyLimit+0x02, "DemandIntegrationPeriod", zcl.TypeUint8, r, def(zcl.U8(1)), bounds(zcl.U8(1), zcl.U8(0xFF))),
		attr(MeteringSetSupplyLimit+0x03, "NumberOfDemandSubintervals", zcl.TypeUint8, r, def(zcl.U8(1)), bounds(zcl.U8(1), zcl.U8(0xFF))),
		attr(MeteringSetSupplyLimit+0x04, "DemandLimitArmDuration", zcl.TypeUint16, r),
		attr(MeteringSetSupplyLimit+0x05, "LoadLimitSupplyState", zcl.TypeEnum8, r),
		attr(MeteringSetSupplyLimit+0x06, "LoadLimitCounter", zcl.TypeUint8, r),
		attr(MeteringSetSupplyLimit+0x07, "SupplyTamperState", zcl.TypeEnum8, r),
		attr(MeteringSetSupplyLimit+0x08, "SupplyDepletionState", zcl.TypeEnum8, r),
		attr(MeteringSetSupplyLimit+0x09, "SupplyUncontrolledFlowState", zcl.TypeEnum8, r),

		attr(MeteringSetAlarms+0x00, "GenericAlarmMask", zcl.TypeBitmap16, zcl.AccessRW, def(zcl.M16(0xFFFF))),
		attr(MeteringSetAlarms+0x01, "ElectricityAlarmMask", zcl.TypeBitmap32, zcl.AccessRW, def(zcl.M32(0xFFFFFFFF))),
		attr(MeteringSetAlarms+0x02, "GenericFlowPressureAlarmMask", zcl.TypeBitmap16, zcl.AccessRW, def(zcl.M16(0xFFFF))),
		attr(MeteringSetAlarms+0x03, "WaterSpecificAlarmMask", zcl.TypeBitmap16, zcl.AccessRW, def(zcl.M16(0xFFFF))),
		attr(MeteringSetAlarms+0x04, "HeatAndCoolingSpecificAlarmMask", zcl.TypeBitmap16, zcl.AccessRW, def(zcl.M16(0xFFFF))),
		attr(MeteringSetAlarms+0x05, "GasSpecificAlarmMask", zcl.TypeBitmap16, zcl.AccessRW, def(zcl.M16(0xFFFF))),
		attr(MeteringSetAlarms+0x06, "ExtendedGenericAlarmMask", zcl.TypeBitmap48, zcl.AccessRW),
		attr(MeteringSetAlarms+0x07, "ManufacturerAlarmMask", zcl.TypeBitmap16, zcl.AccessRW),

		attr(MeteringSetBilling+0x00, "BillToDateDelivered", zcl.TypeUint32, r),
		attr(MeteringSetBilling+0x01, "BillToDateTimeStampDelivered", zcl.TypeUTC, r),
		attr(MeteringSetBilling+0x02, "ProjectedBillDelivered", zcl.TypeUint32, r),
		attr(MeteringSetBilling+0x03, "ProjectedBillTimeStampDelivered", zcl.TypeUTC, r),
		attr(MeteringSetBilling+0x04, "BillDeliveredTrailingDigit", zcl.TypeBitmap8, r),
		attr(MeteringSetBilling+0x10, "BillToDateReceived", zcl.TypeUint32, r),
		attr(MeteringSetBilling+0x11, "BillToDateTimeStampReceived", zcl.TypeUTC, r),
		attr(MeteringSetBilling+0x12, "ProjectedBillReceived", zcl.TypeUint32, r),
		attr(MeteringSetBilling+0x13, "ProjectedBillTimeStampReceived", zcl.TypeUTC, r),
		attr(MeteringSetBilling+0x14, "BillReceivedTrailingDigit", zcl.TypeBitmap8, r),

		attr(MeteringSetSupplyControl+0x00, "ProposedChangeSupplyImplementationTime", zcl.TypeUTC, r),
		attr(MeteringSetSupplyControl+0x01, "ProposedChangeSupplyStatus", zcl.TypeEnum8, r),
		attr(MeteringSetSupplyControl+0x10, "UncontrolledFlowThreshold", zcl.TypeUint16, r),
		attr(MeteringSetSupplyControl+0x11, "UncontrolledFlowThresholdUnitOfMeasure", zcl.TypeEnum8, r),
		attr(MeteringSetSupplyControl+0x12, "UncontrolledFlowMultiplier", zcl.TypeUint16, r),
		attr(MeteringSetSupplyControl+0x13, "UncontrolledFlowDivisor", zcl.TypeUint16, r),
		attr(MeteringSetSupplyControl+0x14, "FlowStabilisationPeriod", zcl.TypeUint8, r),
		attr(MeteringSetSupplyControl+0x15, "FlowMeasurementPeriod", zcl.TypeUint16, r),

		// the four-quadrant set starts at 0x0D01
		u48(r, MeteringSetFourQuadrant+0x01, "CurrentActiveSummationQ1"),
		u48(r, MeteringSetFourQuadrant+0x02, "CurrentActiveSummationQ2"),
		u48(r, MeteringSetFourQuadrant+0x03, "CurrentActiveSummationQ3"),
		u48(r, MeteringSetFourQuadrant+0x04, "CurrentActiveSummationQ4"),
		u48(r, MeteringSetFourQuadrant+0x05, "CurrentReactiveSummationQ1"),
		u48(r, MeteringSetFourQuadrant+0x06, "CurrentReactiveSummationQ2"),
		u48(r, MeteringSetFourQuadrant+0x07, "CurrentReactiveSummationQ3"),
		u48(r, MeteringSetFourQuadrant+0x08, "CurrentReactiveSummationQ4"),
		clusterRevision(1),
	}
}

func meteringAttributes() []zcl.AttributeDef {
	var a []zcl.AttributeDef
	a = append(a, readingInfo()...)
	a = append(a, touInfo()...)
	a = append(a, meterStatus()...)
	a = append(a, formatting()...)
	a = append(a, history(MeteringSetHistorical, "")...)
	a = append(a, blockInfo(MeteringSetBlockDelivered, "Delivered")...)
	a = append(a, blockInfo(MeteringSetBlockReceived, "Received")...)
	a = append(a, history(MeteringSetAlternativeHistory, "Alt")...)
	return append(a, meteringMisc()...)
}

var Metering = zcl.ClusterDef{
	ID:         0x0702,
	Name:       "Metering",
	Attributes: meteringAttributes(),
	Commands: []zcl.CommandDef{
		request(0x00, "GetProfile", 0x00,
			field("IntervalChannel", zcl.TypeEnum8),
			field("EndTime", zcl.TypeUTC),
			field("NumberOfPeriods", zcl.TypeUint8),
		),
		request(0x01, "RequestMirrorResponse", noResponse, field("EndpointID", zcl.TypeUint16)),
		request(0x02, "MirrorRemoved", noResponse, field("RemovedEndpointID", zcl.TypeUint16)),
		request(0x03, "RequestFastPollMode", 0x03,
			field("FastPollUpdatePeriod", zcl.TypeUint8),
			field("Duration", zcl.TypeUint8),
		),
		request(0x04, "ScheduleSnapshot", 0x04,
			field("IssuerEventID", zcl.TypeUint32),
			field("CommandIndex", zcl.TypeUint8),
			field("TotalNumberOfCommands", zcl.TypeUint8),
			field("SnapshotScheduleID", zcl.TypeUint8),
			field("SnapshotStartTime", zcl.TypeUTC),
			field("SnapshotSchedule", zcl.TypeBitmap24),
			field("SnapshotPayloadType", zcl.TypeEnum8),
			field("SnapshotCause", zcl.TypeBitmap32),
		),
		request(0x05, "TakeSnapshot", 0x05, field("SnapshotCause", zcl.TypeBitmap32)),
		request(0x06, "GetSnapshot", 0x06,
			field("EarliestStartTime", zcl.TypeUTC),
			field("LatestEndTime", zcl.TypeUTC),
			field("SnapshotOffset", zcl.TypeUint8),
			field("SnapshotCause", zcl.TypeBitmap32),
		),
		request(0x07, "StartSampling", 0x0D,
			field("IssuerEventID", zcl.TypeUint32),
			field("StartSamplingTime", zcl.TypeUTC),
			field("SampleType", zcl.TypeEnum8),
			field("SampleRequestInterval", zcl.TypeUint16),
			field("MaxNumberOfSamples", zcl.TypeUint16),
		),
		request(0x08, "GetSampledData", 0x07,
			field("SampleID", zcl.TypeUint16),
			field("EarliestSampleTime", zcl.TypeUTC),
			field("SampleType", zcl.TypeEnum8),
			field("NumberOfSamples", zcl.TypeUint16),
		),
		request(0x09, "MirrorReportAttributeResponse", noResponse,
			field("NotificationScheme", zcl.TypeUint8),
			rest("NotificationFlags", zcl.TypeBitmap32),
		),
		request(0x0A, "ResetLoadLimitCounter", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
		),
		request(0x0B, "ChangeSupply", 0x0C,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("RequestDateTime", zcl.TypeUTC),
			field("ImplementationDateTime", zcl.TypeUTC),
			field("ProposedSupplyStatus", zcl.TypeEnum8),
			field("SupplyControlBits", zcl.TypeBitmap8),
		),
		request(0x0C, "LocalChangeSupply", noResponse, field("ProposedSupplyStatus", zcl.TypeEnum8)),
		request(0x0D, "SetSupplyStatus", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("SupplyTamperState", zcl.TypeEnum8),
			field("SupplyDepletionState", zcl.TypeEnum8),
			field("SupplyUncontrolledFlowState", zcl.TypeEnum8),
			field("LoadLimitSupplyState", zcl.TypeEnum8),
		),
		request(0x0E, "SetUncontrolledFlowThreshold", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("UncontrolledFlowThreshold", zcl.TypeUint16),
			field("UnitOfMeasure", zcl.TypeEnum8),
			field("Multiplier", zcl.TypeUint16),
			field("Divisor", zcl.TypeUint16),
			field("StabilisationPeriod", zcl.TypeUint8),
			field("MeasurementPeriod", zcl.TypeUint16),
		),

		notify(0x00, "GetProfileResponse", noResponse,
			field("EndTime", zcl.TypeUTC),
			field("Status", zcl.TypeEnum8),
			field("ProfileIntervalPeriod", zcl.TypeEnum8),
			lengthOf("NumberOfPeriodsDelivered", zcl.TypeUint8, "Intervals"),
			list("Intervals", zcl.TypeUint24, "NumberOfPeriodsDelivered"),
		),
		notify(0x01, "RequestMirror", 0x01),
		notify(0x02, "RemoveMirror", 0x02),
		notify(0x03, "RequestFastPollModeResponse", noResponse,
			field("AppliedUpdatePeriod", zcl.TypeUint8),
			field("FastPollModeEndTime", zcl.TypeUTC),
		),
		notify(0x04, "ScheduleSnapshotResponse", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			records("Confirmations", "",
				field("SnapshotScheduleID", zcl.TypeUint8),
				field("Confirmation", zcl.TypeUint8),
			),
		),
		notify(0x05, "TakeSnapshotResponse", noResponse,
			field("SnapshotID", zcl.TypeUint32),
			field("Confirmation", zcl.TypeUint8),
		),
		notify(0x06, "PublishSnapshot", noResponse,
			field("SnapshotID", zcl.TypeUint32),
			field("SnapshotTime", zcl.TypeUTC),
			field("TotalSnapshotsFound", zcl.TypeUint8),
			field("CommandIndex", zcl.TypeUint8),
			field("TotalNumberOfCommands", zcl.TypeUint8),
			field("SnapshotCause", zcl.TypeBitmap32),
			field("SnapshotPayloadType", zcl.TypeEnum8),
			octets("SnapshotPayload", ""),
		),
		notify(0x07, "GetSampledDataResponse", noResponse,
			field("SampleID", zcl.TypeUint16),
			field("SampleStartTime", zcl.TypeUTC),
			field("SampleType", zcl.TypeEnum8),
			field("SampleRequestInterval", zcl.TypeUint16),
			lengthOf("NumberOfSamples", zcl.TypeUint16, "Samples"),
			list("Samples", zcl.TypeUint24, "NumberOfSamples"),
		),
		notify(0x08, "ConfigureMirror", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("ReportingInterval", zcl.TypeUint24),
			field("MirrorNotificationReporting", zcl.TypeBool),
			field("NotificationScheme", zcl.TypeUint8),
		),
		notify(0x09, "ConfigureNotificationScheme", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("NotificationScheme", zcl.TypeUint8),
			field("NotificationFlagOrder", zcl.TypeBitmap32),
		),
		notify(0x0A, "ConfigureNotificationFlags", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("NotificationScheme", zcl.TypeUint8),
			field("NotificationFlagAttributeID", zcl.TypeUint16),
			field("ClusterID", zcl.TypeClusterID),
			field("Manufacturer", zcl.TypeUint16),
			lengthOf("NumberOfCommands", zcl.TypeUint8, "CommandIDs"),
			list("CommandIDs", zcl.TypeUint8, "NumberOfCommands"),
		),
		notify(0x0B, "GetNotifiedMessage", noResponse,
			field("NotificationScheme", zcl.TypeUint8),
			field("NotificationFlagAttributeID", zcl.TypeUint16),
			field("NotificationFlags", zcl.TypeBitmap32),
		),
		notify(0x0C, "SupplyStatusResponse", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("ImplementationDateTime", zcl.TypeUTC),
			field("SupplyStatus", zcl.TypeUint8),
		),
		notify(0x0D, "StartSamplingResponse", noResponse, field("SampleID", zcl.TypeUint16)),
	},
}
