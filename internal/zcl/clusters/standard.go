package clusters

import (
	"fmt"

	"zcl-node/internal/zcl"
)

// Standard returns every cluster table in this package, ordered by id.
func Standard() []zcl.ClusterDef {
	return []zcl.ClusterDef{
		Basic,                                // 0x0000
		PowerConfiguration,                   // 0x0001
		DeviceTemperatureConfiguration,       // 0x0002
		Identify,                             // 0x0003
		Groups,                               // 0x0004
		Scenes,                               // 0x0005
		OnOff,                                // 0x0006
		OnOffSwitchConfiguration,             // 0x0007
		LevelControl,                         // 0x0008
		Alarms,                               // 0x0009
		Time,                                 // 0x000A
		AnalogInput,                          // 0x000C
		AnalogOutput,                         // 0x000D
		AnalogValue,                          // 0x000E
		BinaryInput,                          // 0x000F
		BinaryOutput,                         // 0x0010
		BinaryValue,                          // 0x0011
		MultistateInput,                      // 0x0012
		MultistateOutput,                     // 0x0013
		MultistateValue,                      // 0x0014
		Commissioning,                        // 0x0015
		OTAUpgrade,                           // 0x0019
		PollControl,                          // 0x0020
		GreenPower,                           // 0x0021
		ShadeConfiguration,                   // 0x0100
		DoorLock,                             // 0x0101
		WindowCovering,                       // 0x0102
		BarrierControl,                       // 0x0103
		PumpConfigurationAndControl,          // 0x0200
		Thermostat,                           // 0x0201
		FanControl,                           // 0x0202
		ThermostatUserInterfaceConfiguration, // 0x0204
		ColorControl,                         // 0x0300
		BallastConfiguration,                 // 0x0301
		IlluminanceMeasurement,               // 0x0400
		IlluminanceLevelSensing,              // 0x0401
		TemperatureMeasurement,               // 0x0402
		PressureMeasurement,                  // 0x0403
		FlowMeasurement,                      // 0x0404
		RelativeHumidity,                     // 0x0405
		OccupancySensing,                     // 0x0406
		SoilMoisture,                         // 0x0408
		PHMeasurement,                        // 0x0409
		ECMeasurement,                        // 0x040A
		WindSpeedMeasurement,                 // 0x040B
		CarbonMonoxide,                       // 0x040C
		CarbonDioxide,                        // 0x040D
		PM25Measurement,                      // 0x042A
		FormaldehydeMeasurement,              // 0x042B
		IASZone,                              // 0x0500
		IASACE,                               // 0x0501
		IASWD,                                // 0x0502
		Price,                                // 0x0700
		DemandResponseLoadControl,            // 0x0701
		Metering,                             // 0x0702
		MeterIdentification,                  // 0x0B01
		ElectricalMeasurement,                // 0x0B04
		Diagnostics,                          // 0x0B05
		TouchlinkCommissioning,               // 0x1000
	}
}

// RegisterAll adds every standard cluster to r. A table that fails to
// compile is a programming error in this package and is reported as such.
func RegisterAll(r *zcl.Registry) error {
	for _, c := range Standard() {
		if err := r.Register(c); err != nil {
			return fmt.Errorf("clusters: %s: %w", c.Name, err)
		}
	}
	return nil
}
