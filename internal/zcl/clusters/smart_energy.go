package clusters

import (
	"fmt"

	"zcl-node/internal/zcl"
)

// Price attribute sets.
const (
	PriceSetTierLabel      uint16 = 0x0000
	PriceSetBlockThreshold uint16 = 0x0100
	PriceSetBlockPeriod    uint16 = 0x0200
	PriceSetCommodity      uint16 = 0x0300
	PriceSetBlockPrice     uint16 = 0x0400
	PriceSetExtendedPrice  uint16 = 0x0500
	PriceSetTariff         uint16 = 0x0600
	PriceSetBilling        uint16 = 0x0700
	PriceSetCreditPayment  uint16 = 0x0800

	PriceTiers = 48
)

// Price command ids.
const (
	PriceCmdGetCurrentPrice    uint8 = 0x00
	PriceCmdGetScheduledPrices uint8 = 0x01
	PriceCmdPublishPrice       uint8 = 0x00
)

func priceAttributes() []zcl.AttributeDef {
	r := zcl.AccessRead
	var a []zcl.AttributeDef
	for t := 1; t <= PriceTiers; t++ {
		a = append(a, attr(PriceSetTierLabel+uint16(t-1), fmt.Sprintf("Tier%dPriceLabel", t), zcl.TypeOctetStr, zcl.AccessRW))
	}
	for b := 1; b <= 15; b++ {
		a = append(a, u48(r, PriceSetBlockThreshold+uint16(b-1), fmt.Sprintf("Block%dThreshold", b)))
	}
	a = append(a, attr(PriceSetBlockThreshold+0x0F, "BlockThresholdCount", zcl.TypeUint8, r))
	for t := 1; t < BlockTiers; t++ {
		for b := 0; b < 15; b++ {
			a = append(a, u48(r, TierBlockAttr(PriceSetBlockThreshold, t, b), fmt.Sprintf("Tier%dBlock%dThreshold", t, b+1)))
		}
		a = append(a, attr(TierBlockAttr(PriceSetBlockThreshold, t, 15), fmt.Sprintf("Tier%dBlockThresholdCount", t), zcl.TypeUint8, r))
	}
	a = append(a,
		attr(PriceSetBlockPeriod+0x00, "StartOfBlockPeriod", zcl.TypeUTC, r),
		attr(PriceSetBlockPeriod+0x01, "BlockPeriodDuration", zcl.TypeUint24, r),
		attr(PriceSetBlockPeriod+0x02, "ThresholdMultiplier", zcl.TypeUint24, r),
		attr(PriceSetBlockPeriod+0x03, "ThresholdDivisor", zcl.TypeUint24, r),
		attr(PriceSetBlockPeriod+0x04, "BlockPeriodDurationType", zcl.TypeBitmap8, r),

		attr(PriceSetCommodity+0x00, "CommodityType", zcl.TypeEnum8, r),
		attr(PriceSetCommodity+0x01, "StandingCharge", zcl.TypeUint32, r),
		attr(PriceSetCommodity+0x02, "ConversionFactor", zcl.TypeUint32, r, def(zcl.U32(0x10000000))),
		attr(PriceSetCommodity+0x03, "ConversionFactorTrailingDigit", zcl.TypeBitmap8, r, def(zcl.M8(0x70))),
		attr(PriceSetCommodity+0x04, "CalorificValue", zcl.TypeUint32, r, def(zcl.U32(0x2625A00))),
		attr(PriceSetCommodity+0x05, "CalorificValueUnit", zcl.TypeEnum8, r, def(zcl.E8(0x01))),
		attr(PriceSetCommodity+0x06, "CalorificValueTrailingDigit", zcl.TypeBitmap8, r, def(zcl.M8(0x60))),
	)
	for t := 0; t < BlockTiers; t++ {
		for b := 0; b < Blocks; b++ {
			tier := "NoTier"
			if t > 0 {
				tier = fmt.Sprintf("Tier%d", t)
			}
			a = append(a, attr(TierBlockAttr(PriceSetBlockPrice, t, b), fmt.Sprintf("%sBlock%dPrice", tier, b+1), zcl.TypeUint32, r))
		}
	}
	for t := 16; t <= PriceTiers; t++ {
		a = append(a, attr(PriceSetExtendedPrice+uint16(t-1), fmt.Sprintf("PriceTier%d", t), zcl.TypeUint32, r))
	}
	a = append(a,
		attr(PriceSetExtendedPrice+0xFE, "CPP1Price", zcl.TypeUint32, r),
		attr(PriceSetExtendedPrice+0xFF, "CPP2Price", zcl.TypeUint32, r),

		attr(PriceSetTariff+0x10, "TariffLabel", zcl.TypeOctetStr, r),
		attr(PriceSetTariff+0x11, "NumberOfPriceTiersInUse", zcl.TypeUint8, r, bounds(zcl.U8(0), zcl.U8(PriceTiers))),
		attr(PriceSetTariff+0x12, "NumberOfBlockThresholdsInUse", zcl.TypeUint8, r, bounds(zcl.U8(0), zcl.U8(15))),
		attr(PriceSetTariff+0x13, "TierBlockMode", zcl.TypeEnum8, r, invalidOK()),
		attr(PriceSetTariff+0x15, "UnitOfMeasure", zcl.TypeEnum8, r),
		attr(PriceSetTariff+0x16, "Currency", zcl.TypeUint16, r),
		attr(PriceSetTariff+0x17, "PriceTrailingDigit", zcl.TypeBitmap8, r),
		attr(PriceSetTariff+0x19, "TariffResolutionPeriod", zcl.TypeEnum8, r),
		attr(PriceSetTariff+0x20, "CO2", zcl.TypeUint32, r, def(zcl.U32(0xB9))),
		attr(PriceSetTariff+0x21, "CO2Unit", zcl.TypeEnum8, r, def(zcl.E8(0x01))),
		attr(PriceSetTariff+0x22, "CO2TrailingDigit", zcl.TypeBitmap8, r),

		attr(PriceSetBilling+0x00, "CurrentBillingPeriodStart", zcl.TypeUTC, r),
		attr(PriceSetBilling+0x01, "CurrentBillingPeriodDuration", zcl.TypeUint24, r),
		attr(PriceSetBilling+0x02, "LastBillingPeriodStart", zcl.TypeUTC, r),
		attr(PriceSetBilling+0x03, "LastBillingPeriodDuration", zcl.TypeUint24, r),
		attr(PriceSetBilling+0x04, "LastBillingPeriodConsolidatedBill", zcl.TypeUint32, r),

		attr(PriceSetCreditPayment+0x00, "CreditPaymentDueDate", zcl.TypeUTC, r),
		attr(PriceSetCreditPayment+0x01, "CreditPaymentStatus", zcl.TypeEnum8, r),
		attr(PriceSetCreditPayment+0x02, "CreditPaymentOverDueAmount", zcl.TypeInt32, r),
		attr(PriceSetCreditPayment+0x0A, "PaymentDiscount", zcl.TypeInt32, r),
		attr(PriceSetCreditPayment+0x0B, "PaymentDiscountPeriod", zcl.TypeEnum8, r),
	)
	for n := 1; n <= 5; n++ {
		base := PriceSetCreditPayment + uint16(n)*0x10
		a = append(a,
			attr(base, fmt.Sprintf("CreditPayment%d", n), zcl.TypeUint32, r),
			attr(base+1, fmt.Sprintf("CreditPaymentDate%d", n), zcl.TypeUTC, r),
			attr(base+2, fmt.Sprintf("CreditPaymentRef%d", n), zcl.TypeOctetStr, r),
		)
	}
	return append(a, clusterRevision(2))
}

// eventQuery is the common "earliest start, min event id, count" request.
func eventQuery(extra ...zcl.Param) []zcl.Param {
	return append([]zcl.Param{
		field("EarliestStartTime", zcl.TypeUTC),
		field("MinIssuerEventID", zcl.TypeUint32),
		field("NumberOfCommands", zcl.TypeUint8),
	}, extra...)
}

var Price = zcl.ClusterDef{
	ID:         0x0700,
	Name:       "Price",
	Attributes: priceAttributes(),
	Commands: []zcl.CommandDef{
		request(PriceCmdGetCurrentPrice, "GetCurrentPrice", int(PriceCmdPublishPrice), field("CommandOptions", zcl.TypeBitmap8)),
		request(PriceCmdGetScheduledPrices, "GetScheduledPrices", int(PriceCmdPublishPrice),
			field("StartTime", zcl.TypeUTC),
			field("NumberOfEvents", zcl.TypeUint8),
		),
		request(0x02, "PriceAcknowledgement", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("PriceAckTime", zcl.TypeUTC),
			field("Control", zcl.TypeBitmap8),
		),
		request(0x03, "GetBlockPeriods", 0x01,
			field("StartTime", zcl.TypeUTC),
			field("NumberOfEvents", zcl.TypeUint8),
			optional("TariffType", zcl.TypeBitmap8),
		),
		request(0x04, "GetConversionFactor", 0x02, eventQuery()...),
		request(0x05, "GetCalorificValue", 0x03, eventQuery()...),
		request(0x06, "GetTariffInformation", 0x04, eventQuery(optional("TariffType", zcl.TypeBitmap8))...),
		request(0x07, "GetPriceMatrix", 0x05, field("IssuerTariffID", zcl.TypeUint32)),
		request(0x08, "GetBlockThresholds", 0x06, field("IssuerTariffID", zcl.TypeUint32)),
		request(0x09, "GetCO2Value", 0x07, eventQuery(optional("TariffType", zcl.TypeBitmap8))...),
		request(0x0A, "GetTierLabels", 0x08, field("IssuerTariffID", zcl.TypeUint32)),
		request(0x0B, "GetBillingPeriod", 0x09, eventQuery(optional("TariffType", zcl.TypeBitmap8))...),
		request(0x0C, "GetConsolidatedBill", 0x0A, eventQuery(optional("TariffType", zcl.TypeBitmap8))...),
		request(0x0D, "CPPEventResponse", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("CPPAuth", zcl.TypeEnum8),
		),
		request(0x0E, "GetCreditPayment", 0x0C,
			field("LatestEndTime", zcl.TypeUTC),
			field("NumberOfRecords", zcl.TypeUint8),
		),
		request(0x0F, "GetCurrencyConversion", 0x0D),
		request(0x10, "GetTariffCancellation", 0x0E),

		notify(PriceCmdPublishPrice, "PublishPrice", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("RateLabel", zcl.TypeOctetStr),
			field("IssuerEventID", zcl.TypeUint32),
			field("CurrentTime", zcl.TypeUTC),
			field("UnitOfMeasure", zcl.TypeEnum8),
			field("Currency", zcl.TypeUint16),
			// trailing digit in the high nibble, price tier in the low nibble
			field("PriceTrailingDigitAndTier", zcl.TypeBitmap8),
			field("NumberOfPriceTiersAndRegisterTier", zcl.TypeBitmap8),
			field("StartTime", zcl.TypeUTC),
			field("DurationInMinutes", zcl.TypeUint16),
			field("Price", zcl.TypeUint32),
			optional("PriceRatio", zcl.TypeUint8),
			optional("GenerationPrice", zcl.TypeUint32),
			optional("GenerationPriceRatio", zcl.TypeUint8),
			optional("AlternateCostDelivered", zcl.TypeUint32),
			optional("AlternateCostUnit", zcl.TypeEnum8),
			optional("AlternateCostTrailingDigit", zcl.TypeBitmap8),
			optional("NumberOfBlockThresholds", zcl.TypeUint8),
			optional("PriceControl", zcl.TypeBitmap8),
			optional("NumberOfGenerationTiers", zcl.TypeUint8),
			optional("GenerationTier", zcl.TypeEnum8),
			optional("ExtendedNumberOfPriceTiers", zcl.TypeUint8),
			optional("ExtendedPriceTier", zcl.TypeEnum8),
			optional("ExtendedRegisterTier", zcl.TypeEnum8),
		),
		notify(0x01, "PublishBlockPeriod", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("BlockPeriodStartTime", zcl.TypeUTC),
			field("BlockPeriodDuration", zcl.TypeUint24),
			field("BlockPeriodControl", zcl.TypeBitmap8),
			field("BlockPeriodDurationType", zcl.TypeBitmap8),
			field("TariffType", zcl.TypeBitmap8),
			field("TariffResolutionPeriod", zcl.TypeEnum8),
		),
		notify(0x02, "PublishConversionFactor", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("ConversionFactor", zcl.TypeUint32),
			field("ConversionFactorTrailingDigit", zcl.TypeBitmap8),
		),
		notify(0x03, "PublishCalorificValue", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("CalorificValue", zcl.TypeUint32),
			field("CalorificValueUnit", zcl.TypeEnum8),
			field("CalorificValueTrailingDigit", zcl.TypeBitmap8),
		),
		notify(0x04, "PublishTariffInformation", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("IssuerTariffID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("TariffTypeChargingScheme", zcl.TypeBitmap8),
			field("TariffLabel", zcl.TypeOctetStr),
			field("NumberOfPriceTiersInUse", zcl.TypeUint8),
			field("NumberOfBlockThresholdsInUse", zcl.TypeUint8),
			field("UnitOfMeasure", zcl.TypeEnum8),
			field("Currency", zcl.TypeUint16),
			field("PriceTrailingDigit", zcl.TypeBitmap8),
			field("StandingCharge", zcl.TypeUint32),
			field("TierBlockMode", zcl.TypeUint8),
			field("BlockThresholdMultiplier", zcl.TypeUint24),
			field("BlockThresholdDivisor", zcl.TypeUint24),
		),
		notify(0x05, "PublishPriceMatrix", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("IssuerTariffID", zcl.TypeUint32),
			field("CommandIndex", zcl.TypeUint8),
			field("TotalNumberOfCommands", zcl.TypeUint8),
			field("SubPayloadControl", zcl.TypeBitmap8),
			records("Prices", "",
				field("TierBlockID", zcl.TypeUint8),
				field("Price", zcl.TypeUint32),
			),
		),
		notify(0x06, "PublishBlockThresholds", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("IssuerTariffID", zcl.TypeUint32),
			field("CommandIndex", zcl.TypeUint8),
			field("TotalNumberOfCommands", zcl.TypeUint8),
			field("SubPayloadControl", zcl.TypeBitmap8),
			octets("Thresholds", ""),
		),
		notify(0x07, "PublishCO2Value", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("TariffType", zcl.TypeBitmap8),
			field("CO2Value", zcl.TypeUint32),
			field("CO2ValueUnit", zcl.TypeEnum8),
			field("CO2ValueTrailingDigit", zcl.TypeBitmap8),
		),
		notify(0x08, "PublishTierLabels", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("IssuerTariffID", zcl.TypeUint32),
			field("CommandIndex", zcl.TypeUint8),
			field("TotalNumberOfCommands", zcl.TypeUint8),
			lengthOf("NumberOfLabels", zcl.TypeUint8, "Labels"),
			records("Labels", "NumberOfLabels",
				field("TierID", zcl.TypeUint8),
				field("TierLabel", zcl.TypeOctetStr),
			),
		),
		notify(0x09, "PublishBillingPeriod", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("BillingPeriodStartTime", zcl.TypeUTC),
			field("BillingPeriodDuration", zcl.TypeUint24),
			field("BillingPeriodDurationType", zcl.TypeBitmap8),
			field("TariffType", zcl.TypeBitmap8),
		),
		notify(0x0A, "PublishConsolidatedBill", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("BillingPeriodStartTime", zcl.TypeUTC),
			field("BillingPeriodDuration", zcl.TypeUint24),
			field("BillingPeriodDurationType", zcl.TypeBitmap8),
			field("TariffType", zcl.TypeBitmap8),
			field("ConsolidatedBill", zcl.TypeUint32),
			field("Currency", zcl.TypeUint16),
			field("BillTrailingDigit", zcl.TypeBitmap8),
		),
		notify(0x0B, "PublishCPPEvent", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("DurationInMinutes", zcl.TypeUint16),
			field("TariffType", zcl.TypeBitmap8),
			field("CPPPriceTier", zcl.TypeEnum8),
			field("CPPAuth", zcl.TypeEnum8),
		),
		notify(0x0C, "PublishCreditPayment", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("CreditPaymentDueDate", zcl.TypeUTC),
			field("CreditPaymentOverDueAmount", zcl.TypeUint32),
			field("CreditPaymentStatus", zcl.TypeEnum8),
			field("CreditPayment", zcl.TypeUint32),
			field("CreditPaymentDate", zcl.TypeUTC),
			field("CreditPaymentRef", zcl.TypeOctetStr),
		),
		notify(0x0D, "PublishCurrencyConversion", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerEventID", zcl.TypeUint32),
			field("StartTime", zcl.TypeUTC),
			field("OldCurrency", zcl.TypeUint16),
			field("NewCurrency", zcl.TypeUint16),
			field("ConversionFactor", zcl.TypeUint32),
			field("ConversionFactorTrailingDigit", zcl.TypeBitmap8),
			field("CurrencyChangeControlFlags", zcl.TypeBitmap32),
		),
		notify(0x0E, "CancelTariff", noResponse,
			field("ProviderID", zcl.TypeUint32),
			field("IssuerTariffID", zcl.TypeUint32),
			field("TariffType", zcl.TypeBitmap8),
		),
	},
}

// DRLC command ids.
const (
	DRLCCmdLoadControlEvent       uint8 = 0x00
	DRLCCmdCancelLoadControlEvent uint8 = 0x01
	DRLCCmdCancelAll              uint8 = 0x02
	DRLCCmdReportEventStatus      uint8 = 0x00
	DRLCCmdGetScheduledEvents     uint8 = 0x01

	DRLCSignatureLen = 42
)

var DemandResponseLoadControl = zcl.ClusterDef{
	ID:   0x0701,
	Name: "Demand Response and Load Control",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "UtilityEnrollmentGroup", zcl.TypeUint8, zcl.AccessRW),
		// minutes
		attr(0x0001, "StartRandomizationMinutes", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(0x1E)), bounds(zcl.U8(0), zcl.U8(0x3C))),
		attr(0x0002, "DurationRandomizationMinutes", zcl.TypeUint8, zcl.AccessRW, bounds(zcl.U8(0), zcl.U8(0x3C))),
		attr(0x0003, "DeviceClassValue", zcl.TypeUint16, zcl.AccessRW),
		clusterRevision(2),
	},
	Commands: []zcl.CommandDef{
		request(DRLCCmdReportEventStatus, "ReportEventStatus", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("EventStatus", zcl.TypeEnum8),
			field("EventStatusTime", zcl.TypeUTC),
			field("CriticalityLevelApplied", zcl.TypeUint8),
			field("CoolingTemperatureSetPointApplied", zcl.TypeInt16),
			field("HeatingTemperatureSetPointApplied", zcl.TypeInt16),
			field("AverageLoadAdjustmentPercentageApplied", zcl.TypeInt8),
			field("DutyCycleApplied", zcl.TypeUint8),
			field("EventControl", zcl.TypeBitmap8),
			field("SignatureType", zcl.TypeEnum8),
			fixed("Signature", DRLCSignatureLen),
		),
		request(DRLCCmdGetScheduledEvents, "GetScheduledEvents", noResponse,
			field("StartTime", zcl.TypeUTC),
			field("NumberOfEvents", zcl.TypeUint8),
			optional("IssuerEventID", zcl.TypeUint32),
		),

		notify(DRLCCmdLoadControlEvent, "LoadControlEvent", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("DeviceClass", zcl.TypeBitmap16),
			field("UtilityEnrollmentGroup", zcl.TypeUint8),
			field("StartTime", zcl.TypeUTC),
			field("DurationInMinutes", zcl.TypeUint16),
			field("CriticalityLevel", zcl.TypeUint8),
			field("CoolingTemperatureOffset", zcl.TypeUint8),
			field("HeatingTemperatureOffset", zcl.TypeUint8),
			field("CoolingTemperatureSetPoint", zcl.TypeInt16),
			field("HeatingTemperatureSetPoint", zcl.TypeInt16),
			field("AverageLoadAdjustmentPercentage", zcl.TypeInt8),
			field("DutyCycle", zcl.TypeUint8),
			field("EventControl", zcl.TypeBitmap8),
		),
		notify(DRLCCmdCancelLoadControlEvent, "CancelLoadControlEvent", noResponse,
			field("IssuerEventID", zcl.TypeUint32),
			field("DeviceClass", zcl.TypeBitmap16),
			field("UtilityEnrollmentGroup", zcl.TypeUint8),
			field("CancelControl", zcl.TypeBitmap8),
			field("EffectiveTime", zcl.TypeUTC),
		),
		notify(DRLCCmdCancelAll, "CancelAllLoadControlEvents", noResponse,
			field("CancelControl", zcl.TypeBitmap8),
		),
	},
}

var MeterIdentification = zcl.ClusterDef{
	ID:   0x0B01,
	Name: "Meter Identification",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "CompanyName", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x0001, "MeterTypeID", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0004, "DataQualityID", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0005, "CustomerName", zcl.TypeCharStr, zcl.AccessRW),
		attr(0x0006, "Model", zcl.TypeOctetStr, zcl.AccessRead),
		attr(0x0007, "PartNumber", zcl.TypeOctetStr, zcl.AccessRead),
		attr(0x0008, "ProductRevision", zcl.TypeOctetStr, zcl.AccessRead),
		attr(0x000A, "SoftwareRevision", zcl.TypeOctetStr, zcl.AccessRead),
		attr(0x000B, "UtilityName", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x000C, "POD", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x000D, "AvailablePower", zcl.TypeInt24, zcl.AccessRead),
		attr(0x000E, "PowerThreshold", zcl.TypeInt24, zcl.AccessRead),
		clusterRevision(1),
	},
}
